package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/logging"
)

var startedAt = time.Now()

// HealthHandler — простой liveness probe.
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"service":    service,
			"started_at": startedAt.Format(time.RFC3339),
			"uptime_sec": int(time.Since(startedAt).Seconds()),
		})
	}
}

// Check is one readiness dependency, e.g. the pgx pool Ping.
type Check func(ctx context.Context) error

// ReadyHandler answers 503 until every check passes.
func ReadyHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.LogError("readiness: dependency not ready", err, logrus.Fields{"dependency": name})
				writeError(w, http.StatusServiceUnavailable, name+" not ready")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
