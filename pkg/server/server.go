package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// Server runs the gateway's HTTP listener.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	logger     *slog.Logger

	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

// New creates a server that will serve handler on the configured address.
func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		httpServer: &http.Server{
			Addr:           cfg.ListenAddress,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		shutdownChan: make(chan struct{}),
	}
}

// Start runs the listener and blocks until the context is canceled, an
// interrupt or TERM signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case <-s.shutdownChan:
		return nil
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests within the configured timeout, then
// closes any that remain.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s.logger.Info("draining connections", "timeout", timeout.String())
		if err = s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown incomplete, closing", "error", err)
			err = s.httpServer.Close()
		}
	})
	return err
}
