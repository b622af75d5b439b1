// Package server exposes the analytics core as a JSON query API. Every
// data endpoint accepts years/months/types query parameters, resolves
// them to a row subset, and returns the matching report payload.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/boundary"
	"github.com/sells-group/lfb-cli/internal/dataset"
)

// Server wires the dataset provider and borough reference to the HTTP
// routes.
type Server struct {
	provider *dataset.Provider
	ref      *boundary.Reference
	weighted bool
}

// New creates a Server. weighted selects volume-weighted borough
// statistics in the regression payloads.
func New(provider *dataset.Provider, ref *boundary.Reference, weighted bool) *Server {
	return &Server{provider: provider, ref: ref, weighted: weighted}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/trends", s.handleTrends)
		r.Get("/boroughs", s.handleBoroughs)
		r.Get("/delays", s.handleDelays)
		r.Get("/regression", s.handleRegression)
		r.Get("/boundaries", s.handleBoundaries)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
