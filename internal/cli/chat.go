package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/agui"
)

// NewChatCmd creates the chat command, a small terminal client for the run
// endpoint.
func NewChatCmd() *cobra.Command {
	var (
		serverURL string
		appID     string
		userID    string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message and stream the reply",
		Long: `Send one message to a running agent and render the event stream.

The session is keyed by (app-id, user-id); repeated invocations with the same
pair continue the same conversation until it idles out.

Examples:
  agui chat "what's the weather in Paris?"
  agui chat --app-id demo --user-id alice "find me a keyboard under $100"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(cmd, serverURL, appID, userID, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "Agent server base URL")
	cmd.Flags().StringVar(&appID, "app-id", "shopping_assistant_app", "Application identifier")
	cmd.Flags().StringVar(&userID, "user-id", "local", "User identifier")

	return cmd
}

func chat(cmd *cobra.Command, serverURL, appID, userID, message string) error {
	body, err := json.Marshal(agui.RunInput{AppID: appID, UserID: userID, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	return renderStream(cmd.OutOrStdout(), resp.Body)
}

// renderStream prints the event stream as a readable transcript: deltas are
// written inline as they arrive, tool activity and terminal events on their
// own lines.
func renderStream(out io.Writer, r io.Reader) error {
	var (
		toolColor = color.New(color.FgCyan)
		okColor   = color.New(color.FgGreen)
		errColor  = color.New(color.FgRed)
		dimColor  = color.New(color.Faint)
	)

	reader := agui.NewStreamReader(r)
	inText := false
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		switch ev.Type {
		case agui.EventTurnStarted:
			dimColor.Fprintf(out, "turn %s\n", ev.TurnID)

		case agui.EventTextDelta:
			fmt.Fprint(out, ev.Delta)
			inText = true

		case agui.EventToolCallStarted:
			if inText {
				fmt.Fprintln(out)
				inText = false
			}
			args, _ := json.Marshal(ev.ToolCall.Args)
			toolColor.Fprintf(out, "-> %s(%s)\n", ev.ToolCall.Name, args)

		case agui.EventToolCallFinished:
			if ev.ToolResult.Error != "" {
				errColor.Fprintf(out, "<- %s: %s (%s)\n", ev.ToolResult.Name, ev.ToolResult.Outcome, ev.ToolResult.Error)
			} else {
				toolColor.Fprintf(out, "<- %s: %s\n", ev.ToolResult.Name, ev.ToolResult.Outcome)
			}

		case agui.EventTurnFinished:
			if inText {
				fmt.Fprintln(out)
			}
			okColor.Fprintln(out, "done")
			return nil

		case agui.EventTurnFailed:
			if inText {
				fmt.Fprintln(out)
			}
			errColor.Fprintf(out, "turn failed: %s\n", ev.Reason)
			return fmt.Errorf("turn failed: %s", ev.Reason)
		}
	}
}
