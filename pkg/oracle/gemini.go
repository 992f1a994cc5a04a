package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/apperrors"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// DefaultGeminiModel is used when the configuration does not name a model.
const DefaultGeminiModel = "gemini-2.5-flash"

// DefaultSystemInstruction is the shopping-assistant persona handed to the
// model together with the tool declarations.
const DefaultSystemInstruction = `You are a helpful shopping assistant with access to weather, product information, and creative writing.

Use get_weather when users ask about weather, search_products to find products by name, category or price, get_product_details for a specific product, and generate_poem when users ask for a poem (generate the poem yourself and pass it to the tool).

Be helpful and concise. After calling get_product_details or generate_poem, do not repeat the tool output in your response; just confirm briefly. If a tool returns an error, explain it clearly to the user.`

// GeminiConfig configures the Gemini-backed oracle.
type GeminiConfig struct {
	// APIKey is required. Missing credentials are a fatal configuration
	// error: the process must not start without them.
	APIKey string
	// Model defaults to DefaultGeminiModel.
	Model string
	// SystemInstruction defaults to DefaultSystemInstruction.
	SystemInstruction string
}

// Gemini drives Google Gemini as the reasoning oracle, translating its
// streamed candidates and function calls into the step sequence.
type Gemini struct {
	client *genai.Client
	model  string
	sys    string
	log    logr.Logger
}

// NewGemini creates a Gemini oracle.
func NewGemini(ctx context.Context, cfg GeminiConfig, log logr.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "Gemini API key is required", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to create Gemini client", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	sys := cfg.SystemInstruction
	if sys == "" {
		sys = DefaultSystemInstruction
	}
	return &Gemini{client: client, model: model, sys: sys, log: log}, nil
}

// ModelName returns the configured model identifier.
func (g *Gemini) ModelName() string { return g.model }

// Stream implements Oracle. It runs the function-calling loop against the
// model in a background goroutine; each tool call blocks the loop until the
// caller provides the result.
func (g *Gemini) Stream(ctx context.Context, req Request) (Stream, error) {
	st := &geminiStream{
		steps:   make(chan Step),
		errs:    make(chan error, 1),
		results: make(chan ToolResult),
		done:    make(chan struct{}),
	}
	go g.run(ctx, req, st)
	return st, nil
}

type geminiStream struct {
	steps     chan Step
	errs      chan error
	results   chan ToolResult
	done      chan struct{}
	closeOnce sync.Once
}

func (st *geminiStream) Next(ctx context.Context) (Step, error) {
	select {
	case step := <-st.steps:
		return step, nil
	case err := <-st.errs:
		return Step{}, err
	case <-ctx.Done():
		return Step{}, ctx.Err()
	case <-st.done:
		return Step{}, fmt.Errorf("oracle: stream closed")
	}
}

func (st *geminiStream) Provide(ctx context.Context, result ToolResult) error {
	select {
	case st.results <- result:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-st.done:
		return fmt.Errorf("oracle: stream closed")
	}
}

func (st *geminiStream) Close() error {
	st.closeOnce.Do(func() { close(st.done) })
	return nil
}

// run executes the model conversation loop: stream a candidate, surface its
// text as deltas, and on a function call hand the tool request to the caller
// and wait for the result before continuing. The loop ends when a candidate
// carries no function call.
func (g *Gemini) run(ctx context.Context, req Request, st *geminiStream) {
	contents := historyToContents(req)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.sys, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: declarations(req.Tools)}},
	}

	fail := func(err error) {
		select {
		case st.errs <- apperrors.New(apperrors.ErrCodeOracleFailed, "model request failed", err):
		case <-st.done:
		case <-ctx.Done():
		}
	}
	emit := func(step Step) bool {
		select {
		case st.steps <- step:
			return true
		case <-st.done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for {
		var text string
		var call *genai.FunctionCall

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				fail(err)
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
					if !emit(Text(part.Text)) {
						return
					}
				}
				if part.FunctionCall != nil {
					call = part.FunctionCall
				}
			}
		}

		var modelParts []*genai.Part
		if text != "" {
			modelParts = append(modelParts, &genai.Part{Text: text})
		}
		if call != nil {
			modelParts = append(modelParts, &genai.Part{FunctionCall: call})
		}
		if len(modelParts) > 0 {
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: modelParts})
		}

		if call == nil {
			emit(End())
			return
		}

		if !emit(Call(call.Name, call.Args)) {
			return
		}

		var result ToolResult
		select {
		case result = <-st.results:
		case <-st.done:
			return
		case <-ctx.Done():
			return
		}

		contents = append(contents, &genai.Content{
			Role: genai.RoleUser,
			Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
				Name:     call.Name,
				Response: responseMap(result),
			}}},
		})
	}
}

// historyToContents replays the accumulated conversation, including past
// tool exchanges, into the model's content format.
func historyToContents(req Request) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range req.History {
		switch msg.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			for _, tr := range msg.ToolTraces {
				contents = append(contents,
					&genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
						{FunctionCall: &genai.FunctionCall{Name: tr.Name, Args: tr.Args}},
					}},
					&genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{
						{FunctionResponse: &genai.FunctionResponse{
							Name: tr.Name,
							Response: responseMap(ToolResult{
								Name:    tr.Name,
								Payload: tr.Payload,
								IsError: tr.IsError,
								Error:   tr.Error,
							}),
						}},
					}},
				)
			}
			if msg.Content != "" {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
			}
		}
	}
	contents = append(contents, genai.NewContentFromText(req.UserMessage, genai.RoleUser))
	return contents
}

// responseMap shapes a tool result into the map the model expects as a
// function response.
func responseMap(result ToolResult) map[string]any {
	if result.IsError {
		return map[string]any{"error": result.Error}
	}
	if m, ok := result.Payload.(map[string]any); ok {
		return m
	}
	// Round-trip structured payloads through JSON so the model sees plain
	// maps regardless of the tool's concrete types.
	data, err := json.Marshal(result.Payload)
	if err == nil {
		var m map[string]any
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	}
	return map[string]any{"result": result.Payload}
}

// declarations converts registry schemas to the model's function
// declarations.
func declarations(schemas []tools.Schema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		props := make(map[string]*genai.Schema, len(s.Params))
		var required []string
		for _, p := range s.Params {
			props[p.Name] = &genai.Schema{
				Type:        genaiType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return decls
}

func genaiType(t tools.ParamType) genai.Type {
	switch t {
	case tools.TypeString:
		return genai.TypeString
	case tools.TypeInteger:
		return genai.TypeInteger
	case tools.TypeNumber:
		return genai.TypeNumber
	case tools.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
