package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mholler/imagetext/internal/observability"
)

// Router assembles the API routes with their global middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(requestContext)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.Server.WriteTimeout))

	r.Get("/health", s.handlers.Health)
	r.Get("/info", s.handlers.Info)
	r.Post("/extract", s.handlers.Extract)
	r.Post("/extract/batch", s.handlers.ExtractBatch)

	r.NotFound(s.handlers.NotFound)
	r.MethodNotAllowed(s.handlers.MethodNotAllowed)

	return r
}

// requestContext copies chi's request ID into the context key the logger
// reads, so every log line of a request carries the same correlation ID.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(observability.ContextWithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
