package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	"github.com/Camillus83/eventmanager/internal/ingest"
	"github.com/Camillus83/eventmanager/internal/logging"
)

// FailureLister reads back what the ingest pipeline gave up on.
type FailureLister interface {
	RecentFailures(ctx context.Context, class ingest.FailureClass, limit int) ([]ingest.StoredFailure, error)
}

// FailureResponse — запись из ingest_failures для оператора.
type FailureResponse struct {
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Payload   string    `json:"payload"`
	Class     string    `json:"class"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failedAt"`
}

// FailuresHandler serves GET /failures?class=&limit=, newest first.
func FailuresHandler(store FailureLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var class ingest.FailureClass
		if raw := q.Get("class"); raw != "" {
			c, ok := ingest.ParseFailureClass(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown failure class "+raw)
				return
			}
			class = c
		}
		limit, err := intParam(q, "limit")
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit == 0 {
			limit = events.DefaultLimit
		}
		if limit > events.MaxLimit {
			limit = events.MaxLimit
		}

		list, err := store.RecentFailures(r.Context(), class, limit)
		if err != nil {
			writeServiceError(w, "RecentFailures", err)
			return
		}
		logging.LogDebug("Failures found", logrus.Fields{"method": "RecentFailures", "class": string(class), "count": len(list)})

		out := make([]FailureResponse, 0, len(list))
		for _, f := range list {
			out = append(out, FailureResponse{
				Topic:     f.Topic,
				Partition: f.Partition,
				Offset:    f.Offset,
				Payload:   string(f.Payload),
				Class:     string(f.Class),
				Reason:    f.Reason,
				Attempts:  f.Attempts,
				FailedAt:  f.FailedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
