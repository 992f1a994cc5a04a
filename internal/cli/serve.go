package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edderleonardo/adk-agui-tutorial/internal/catalog"
	"github.com/edderleonardo/adk-agui-tutorial/internal/config"
	"github.com/edderleonardo/adk-agui-tutorial/internal/httpapi"
	"github.com/edderleonardo/adk-agui-tutorial/internal/logging"
	"github.com/edderleonardo/adk-agui-tutorial/internal/metrics"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/bridge"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/oracle"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/session"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/toolset"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent server",
		Long: `Run the agent server.

Configuration comes from defaults, an optional YAML file and AGUI_-prefixed
environment variables. The Gemini credential is read from GOOGLE_API_KEY and
is required.

Examples:
  agui serve
  agui serve --config config.yaml
  AGUI_PORT=9000 agui serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")

	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	products, err := catalog.Open(catalog.Config{
		Driver: cfg.Catalog.Driver,
		DSN:    cfg.Catalog.DSN,
	}, log.WithName("catalog"))
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	if err := toolset.Register(registry, products); err != nil {
		return err
	}

	orc, err := oracle.NewGemini(ctx, oracle.GeminiConfig{
		APIKey: cfg.GoogleAPIKey,
		Model:  cfg.Model,
	}, log.WithName("oracle"))
	if err != nil {
		return err
	}

	m := metrics.New()

	store := session.NewStore(session.Config{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
	}, session.WithStoreLogger(log.WithName("session")))
	m.TrackActiveSessions(func() float64 { return float64(store.Len()) })

	dispatcher := tools.NewDispatcher(registry,
		tools.WithTimeout(cfg.ToolTimeout),
		tools.WithLogger(log.WithName("dispatcher")),
	)

	b := bridge.New(store, registry, dispatcher, orc,
		bridge.WithLogger(log.WithName("bridge")),
		bridge.WithMetrics(m),
	)

	server := httpapi.New(httpapi.Options{
		Addr:     cfg.Addr(),
		AppName:  cfg.AppName,
		Model:    orc.ModelName(),
		Bridge:   b,
		Registry: registry,
		Metrics:  m,
		Logger:   log.WithName("http"),
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store.Start(runCtx)
	defer store.Stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	log.Info("agent ready", "app", cfg.AppName, "model", orc.ModelName(), "tools", registry.Names())

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down gracefully: %w", err)
	}
	return nil
}
