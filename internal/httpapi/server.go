// Package httpapi exposes the bridge over HTTP: the streaming run endpoint
// plus health, info and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"

	"github.com/edderleonardo/adk-agui-tutorial/internal/metrics"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/agui"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/bridge"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// Options configures the API server.
type Options struct {
	Addr     string
	AppName  string
	Model    string
	Bridge   *bridge.Bridge
	Registry *tools.Registry
	Metrics  *metrics.Metrics
	Logger   logr.Logger
}

// Server is the HTTP front of the bridge.
type Server struct {
	opts Options
	log  logr.Logger
	http *http.Server
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{opts: opts, log: opts.Logger}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	// No WriteTimeout: the run endpoint holds the response open for the
	// lifetime of the turn.
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleRun opens a turn and streams its events back as server-sent events.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var input agui.RunInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if msg := validateInput(input); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	stream, err := agui.NewStreamWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.opts.Bridge.Run(r.Context(), input, stream); err != nil {
		// The stream already carries the terminal event (or the client is
		// gone); nothing more can be written here.
		s.log.V(1).Info("run ended with error", "app_id", input.AppID, "user_id", input.UserID, "error", err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"app":      s.opts.AppName,
		"protocol": agui.ProtocolVersion,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	infos := make([]toolInfo, 0)
	for _, schema := range s.opts.Registry.Schemas() {
		infos = append(infos, toolInfo{Name: schema.Name, Description: schema.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_name":       s.opts.AppName,
		"model":            s.opts.Model,
		"protocol_version": agui.ProtocolVersion,
		"available_tools":  infos,
	})
}

func validateInput(input agui.RunInput) string {
	var missing []string
	if input.AppID == "" {
		missing = append(missing, "app_id")
	}
	if input.UserID == "" {
		missing = append(missing, "user_id")
	}
	if input.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return "missing required fields: " + strings.Join(missing, ", ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
