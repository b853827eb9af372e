package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"placementprep/internal/config"
	"placementprep/internal/scorer"
)

const shutdownTimeout = 30 * time.Second

// Start runs the server until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.Watch(s.applyConfig); err != nil {
		s.Logger.LogError(err, "Config hot reload disabled")
	}

	s.displayServerInfo()
	return s.Run(ctx)
}

// Handler returns the routed handler wrapped in the tracing middleware
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.release()
		if !ok {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown drains in-flight requests and releases every component
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		err = server.Close()
	}

	s.release()
	if err == nil {
		s.Logger.Info("Server shutdown completed successfully")
	}
	return err
}

func (s *Server) release() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
	if s.services.Practice != nil {
		s.services.Practice.Close()
	}
	if s.services.Identity != nil {
		if err := s.services.Identity.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close identity store")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// applyConfig installs a reloaded snapshot. The log level and scorer follow the
// new file. Listener, identity store and judge client keep their startup settings.
func (s *Server) applyConfig(cfg *config.Config) {
	cfg.CarrySecrets(s.Config())

	if err := cfg.Validate(); err != nil {
		s.Logger.LogError(err, "Ignoring reloaded configuration")
		return
	}

	if err := s.Logger.SetLevel(cfg.App.LogLevel); err != nil {
		s.Logger.LogError(err, "Invalid log level in reloaded configuration", "level", cfg.App.LogLevel)
	}

	svc, err := scorer.NewService(cfg, s.Logger)
	if err != nil {
		s.Logger.LogError(err, "Keeping previous scorer after reload")
	} else {
		s.setScorer(svc)
	}

	s.appConfig.Store(cfg)
	s.Logger.Info("Configuration reloaded", "scorer_mode", cfg.Scorer.Mode, "log_level", cfg.App.LogLevel)
}
