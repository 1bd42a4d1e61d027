package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/statement-converter/internal/api/handlers"
	"github.com/dvloznov/statement-converter/internal/api/middleware"
	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	SessionsHandler *handlers.SessionsHandler
	PageHandler     *handlers.PageHandler
	RateLimiter     *middleware.RateLimiter
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Logger          zerolog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Limit
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Page
	r.Get("/", cfg.PageHandler.Index)
	r.Post("/upload", cfg.PageHandler.Upload)
	r.With(limit).Post("/process", cfg.PageHandler.Process)
	r.Get("/download", cfg.PageHandler.Download)
	r.Post("/reset", cfg.PageHandler.Reset)

	// JSON API
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", cfg.SessionsHandler.Create)
		r.Get("/{id}", cfg.SessionsHandler.Get)
		r.Delete("/{id}", cfg.SessionsHandler.Delete)
		r.Post("/{id}/file", cfg.SessionsHandler.UploadFile)
		r.With(limit).Post("/{id}/process", cfg.SessionsHandler.Process)
		r.Get("/{id}/export", cfg.SessionsHandler.Export)
	})

	return r
}
