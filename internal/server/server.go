package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mholler/imagetext/internal/config"
	"github.com/mholler/imagetext/internal/extract"
	"github.com/mholler/imagetext/internal/observability"
)

// Version identifies the API in health and info responses.
const Version = "1.0.0"

// Server hosts the text extraction HTTP API.
type Server struct {
	cfg      *config.Config
	log      *observability.Logger
	handlers *Handlers
}

// New creates a Server around the given pipeline.
func New(cfg *config.Config, pipeline *extract.Pipeline, log *observability.Logger) *Server {
	if log == nil {
		log = observability.DefaultLogger()
	}
	log = log.WithComponent("server")

	return &Server{
		cfg:      cfg,
		log:      log,
		handlers: NewHandlers(pipeline, cfg.Server.MaxUploadBytes, log),
	}
}

// Run starts the HTTP listener and blocks until ctx is cancelled or the
// listener fails. On cancellation, in-flight requests are drained for the
// configured graceful shutdown window before Run returns.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.log.Info().Msg("server stopped")
	return nil
}
