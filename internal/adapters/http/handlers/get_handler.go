package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/logging"
)

func (h *EventHandlers) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if id == "" {
		writeError(w, http.StatusBadRequest, "uuid is required")
		return
	}

	logging.LogDebug("Fetching event", logrus.Fields{"method": "GetHandler", "uuid": id})

	ev, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, "GetHandler", err)
		return
	}
	writeJSON(w, http.StatusOK, ToResponse(ev))
}
