// Package httptransport is the thin HTTP layer over the engine, the driver directory
// and the availability read model. Handlers parse, delegate and translate errors;
// they hold no business rules.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"hoslink/internal/platform/metrics"
	"hoslink/internal/platform/middleware"
	"hoslink/pkg/platform/httputil"
)

// RouterConfig carries what NewRouter mounts besides the domain handlers.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Ready reports backend health for /healthz. Nil means always healthy.
	Ready          func(r *http.Request) error
	RequestTimeout time.Duration
}

// NewRouter wires the query API under /v1 plus /healthz and /metrics.
func NewRouter(cfg RouterConfig, hos *HOSHandler, drivers *DriverHandler, availability *AvailabilityHandler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Correlation)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(req); err != nil {
				cfg.Logger.WarnContext(req.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(chimw.Timeout(cfg.RequestTimeout))
		hos.Register(v1)
		drivers.Register(v1)
		availability.Register(v1)
	})
	return r
}
