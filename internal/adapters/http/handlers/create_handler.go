package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/logging"
)

func (h *EventHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := decodeEventRequest(w, r)
	if err != nil {
		logging.LogError("Error decoding request body", err, logrus.Fields{"method": "CreateEvent"})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, "CreateEvent", err)
		return
	}

	w.Header().Set("Location", "/events/"+ev.UUID)
	logging.LogInfo("Event created", logrus.Fields{"method": "CreateEvent", "uuid": ev.UUID, "source": ev.Source})
	writeJSON(w, http.StatusCreated, ToResponse(ev))
}
