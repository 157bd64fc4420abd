// Package api wires the HTTP handlers into a router.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"statement_engine/pkg/api/analysis"
	"statement_engine/pkg/api/respond"
	"statement_engine/pkg/api/rules"
)

// Deps are the handlers and collaborators the router serves.
type Deps struct {
	Analysis *analysis.Handler
	Rules    *rules.Handler
	// Metrics is served at MetricsPath when non-nil.
	Metrics     http.Handler
	MetricsPath string
	Log         zerolog.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthCheckHandler).Methods(http.MethodGet)
	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, d.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analysis", d.Analysis.HandleFactBag).Methods(http.MethodPost)
	api.HandleFunc("/analysis", d.Analysis.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/analysis/ixbrl", d.Analysis.HandleIXBRL).Methods(http.MethodPost)
	api.HandleFunc("/analysis/markdown", d.Analysis.HandleMarkdown).Methods(http.MethodPost)
	api.HandleFunc("/analysis/{id}", d.Analysis.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/rules", d.Rules.HandleRules).Methods(http.MethodGet)

	r.Use(recoveryMiddleware(d.Log))
	r.Use(loggingMiddleware(d.Log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "statement-engine",
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("panic recovered")
					respond.Error(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
