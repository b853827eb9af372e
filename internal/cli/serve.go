package cli

import (
	"context"
	"fmt"
	"time"

	"placementprep/internal/observability"
	"placementprep/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that exposes practice sessions, resume scoring,
interview questions and sign-in over REST.

Available endpoints:
- /practice/sessions/...: Coding practice against the judge
- POST /resume/score: Score a resume (multipart upload)
- GET /interview/question, POST /interview/evaluate: Mock interview
- POST /auth/signup, /auth/login, /auth/google and GET /profile: Identity
- GET /health, /stats, /status: Health, statistics and judge status

The config file is watched; log level and scorer settings are reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	Port string
	Host string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.Port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveFlags.Port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveFlags.Host
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	services, err := server.BuildServices(cmd.Context(), cfg, om, logger)
	if err != nil {
		shutdownObservability(om)
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv := server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), services, om, logger)
	return srv.Start()
}

func shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = om.Shutdown(ctx)
}
