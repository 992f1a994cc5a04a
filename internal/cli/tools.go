package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewToolsCmd creates the tools command, which lists the tools a running
// agent advertises.
func NewToolsCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools a running agent exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTools(cmd, serverURL)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "Agent server base URL")

	return cmd
}

func listTools(cmd *cobra.Command, serverURL string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
		strings.TrimRight(serverURL, "/")+"/info", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var info struct {
		AgentName       string `json:"agent_name"`
		Model           string `json:"model"`
		ProtocolVersion string `json:"protocol_version"`
		AvailableTools  []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"available_tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode info response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, %s)\n", info.AgentName, info.Model, info.ProtocolVersion)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Tool", "Description"})
	for _, tool := range info.AvailableTools {
		t.AppendRow(table.Row{tool.Name, tool.Description})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
