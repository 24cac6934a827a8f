// AngelaMos | 2026
// server.go

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/stockease/internal/config"
	"github.com/carterperez-dev/stockease/internal/health"
)

type Config struct {
	ServerConfig  config.ServerConfig
	HealthHandler *health.Handler
	Logger        *slog.Logger
}

type Server struct {
	httpServer      *http.Server
	router          chi.Router
	health          *health.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg Config) *Server {
	router := chi.NewRouter()

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ServerConfig.Address(),
			Handler:      router,
			ReadTimeout:  cfg.ServerConfig.ReadTimeout,
			WriteTimeout: cfg.ServerConfig.WriteTimeout,
			IdleTimeout:  cfg.ServerConfig.IdleTimeout,
		},
		router:          router,
		health:          cfg.HealthHandler,
		logger:          cfg.Logger,
		shutdownTimeout: cfg.ServerConfig.ShutdownTimeout,
	}
}

func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

// Shutdown flips readiness first and waits drainDelay so load balancers stop
// routing new requests before in-flight ones are cut off.
func (s *Server) Shutdown(ctx context.Context, drainDelay time.Duration) error {
	if s.health != nil {
		s.health.SetShutdown(true)
	}

	s.logger.Info("draining connections", "delay", drainDelay)

	select {
	case <-time.After(drainDelay):
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
