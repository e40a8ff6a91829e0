package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

const maxBodyBytes = 1 << 20

// EventRequest — тело createEvent / updateEvent.
type EventRequest struct {
	Source      *string `json:"source"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

var errMissingFields = errors.New("source, name and description are required")

func (r EventRequest) ToInput() (domain.Input, error) {
	if r.Source == nil || r.Name == nil || r.Description == nil {
		return domain.Input{}, errMissingFields
	}
	return domain.Input{
		Source:      domain.Source(*r.Source),
		Name:        *r.Name,
		Description: *r.Description,
	}, nil
}

func decodeEventRequest(w http.ResponseWriter, r *http.Request) (domain.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req EventRequest
	if err := dec.Decode(&req); err != nil {
		return domain.Input{}, err
	}
	return req.ToInput()
}

// EventResponse — DTO для ответа клиенту.
type EventResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	UUID        string     `json:"uuid"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	Description string     `json:"description"`
}

func ToResponse(ev domain.Event) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		Name:        ev.Name,
		UUID:        ev.UUID,
		Source:      ev.Source.String(),
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
		Description: ev.Description,
	}
}

func ToResponseList(src []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(src))
	for _, ev := range src {
		out = append(out, ToResponse(ev))
	}
	return out
}
