package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *EventHandlers) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if id == "" {
		writeError(w, http.StatusBadRequest, "uuid can't be empty")
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, "DeleteHandler", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
