package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rbeccah/airtable/internal/logging"
	"github.com/rbeccah/airtable/internal/middleware"
	"github.com/rbeccah/airtable/internal/observability"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig assembles the middleware stack and optional endpoints.
type RouterConfig struct {
	Logger             *logging.Logger
	Metrics            *observability.Metrics
	MetricsHandler     http.Handler
	Pinger             Pinger
	HealthCheckTimeout time.Duration
	CORS               middleware.CORSConfig
	RateLimit          middleware.RateLimitConfig
}

// NewRouter builds the chi router for the grid API.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.Logger != nil {
		r.Use(middleware.LoggingMiddleware(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.CORSMiddleware(cfg.CORS))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimit))

	r.Route("/api", func(r chi.Router) {
		r.Route("/bases", func(r chi.Router) {
			r.Post("/", h.CreateBase)
			r.Get("/{baseID}", h.GetBase)
			r.Post("/{baseID}/tables", h.CreateTable)
		})
		r.Route("/tables/{tableID}", func(r chi.Router) {
			r.Get("/", h.GetTable)
			r.Post("/columns", h.AddColumn)
			r.Post("/rows", h.AddRows)
			r.Get("/rows", h.GetRows)
			r.Get("/search", h.Search)
			r.Post("/views", h.CreateView)
			r.Get("/views", h.ListViews)
		})
		r.Route("/views/{viewID}", func(r chi.Router) {
			r.Get("/", h.GetView)
			r.Put("/filters", h.ReplaceFilters)
			r.Put("/sorts", h.ReplaceSorts)
			r.Put("/visibility", h.ReplaceVisibility)
		})
		r.Patch("/cells/{cellID}", h.UpdateCell)
	})

	r.Get("/health", healthHandler(cfg.Pinger, cfg.HealthCheckTimeout))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}

func healthHandler(pinger Pinger, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
