package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/logging"
)

func (h *EventHandlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	in, err := decodeEventRequest(w, r)
	if err != nil {
		logging.LogError("Error decoding request body", err, logrus.Fields{"method": "UpdateEvent", "uuid": id})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.svc.UpdateEvent(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, "UpdateEvent", err)
		return
	}
	logging.LogInfo("Event updated", logrus.Fields{"method": "UpdateEvent", "uuid": ev.UUID})
	writeJSON(w, http.StatusOK, ToResponse(ev))
}
