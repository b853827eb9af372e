package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"placementprep/internal/cli"
	"placementprep/internal/config"
	"placementprep/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}

	generated, err := cfg.EnsureJWTSecret()
	if err != nil {
		logger.LogError(err, "Failed to prepare identity secret")
		os.Exit(1)
	}
	if generated {
		logger.Warn("identity.jwtSecret is not set; using a generated secret, sessions will not survive a restart")
	}

	if err := cfg.ValidateSecrets(); err != nil {
		logger.LogError(err, "Missing required secrets")
		os.Exit(1)
	}

	logger.Debug("Starting placementprep",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"scorer_mode", cfg.Scorer.Mode,
		"interview_mode", cfg.Interview.Mode,
		"identity_store", cfg.Identity.Store)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
