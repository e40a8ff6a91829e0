package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Camillus83/eventmanager/internal/metrics"
)

type RouterConfig struct {
	Service  string
	Checks   map[string]Check
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
	Timeout  time.Duration
	// Failures enables GET /failures when set.
	Failures FailureLister
}

func NewRouter(h *EventHandlers, cfg RouterConfig) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewHTTP(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.StripSlashes, middleware.Timeout(cfg.Timeout))
	r.Use(instrument(cfg.Metrics))

	r.Get("/health", HealthHandler(cfg.Service))
	r.Get("/ready", ReadyHandler(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/all", h.AllEvents)
		r.Get("/{uuid}", h.GetHandler)
		r.Put("/{uuid}", h.UpdateEvent)
		r.Delete("/{uuid}", h.DeleteHandler)
	})
	if cfg.Failures != nil {
		r.Get("/failures", FailuresHandler(cfg.Failures))
	}
	return r
}

// instrument records requests by route pattern, so uuids never become labels.
func instrument(m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			m.Duration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
		})
	}
}
