package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

type EventHandlers struct {
	svc serviceInterface
}

type serviceInterface interface {
	CreateEvent(ctx context.Context, in domain.Input) (domain.Event, error)
	UpdateEvent(ctx context.Context, uuid string, in domain.Input) (domain.Event, error)
	GetEvent(ctx context.Context, uuid string) (domain.Event, error)
	DeleteEvent(ctx context.Context, uuid string) error
	ListEvents(ctx context.Context, filters events.ListFilters, req events.PageRequest) ([]domain.Event, error)
	AllEvents(ctx context.Context) ([]domain.Event, error)
}

func NewEventHandlers(svc serviceInterface) *EventHandlers {
	return &EventHandlers{svc: svc}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeServiceError переводит ошибки сервиса в HTTP-статусы.
func writeServiceError(w http.ResponseWriter, method string, err error) {
	fields := logrus.Fields{"method": method}
	switch {
	case errors.Is(err, events.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, events.ErrInvalidData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, events.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, events.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, events.ErrTimeout), errors.Is(err, events.ErrRetryable):
		logging.LogError("Event store temporarily unavailable", err, fields)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.LogError("Internal server error", err, fields)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
