package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	cloudevent "github.com/cloudevents/sdk-go/v2/event"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/validation"
)

var ErrDecode = errors.New("malformed message")

type payload struct {
	Source      *string `json:"source"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type probe struct {
	SpecVersion string `json:"specversion"`
}

// Decode parses a raw message into an event input. Constraint violations
// match both ErrDecode and events.ErrInvalidData. A structured-mode
// CloudEvent is unwrapped and its data decoded the same way.
func Decode(raw []byte) (domain.Input, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Input{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var pr probe
	if err := json.Unmarshal(raw, &pr); err == nil && pr.SpecVersion != "" {
		data, err := unwrapCloudEvent(raw)
		if err != nil {
			return domain.Input{}, err
		}
		raw = data
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Input{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var missing []string
	if p.Source == nil {
		missing = append(missing, "source")
	}
	if p.Name == nil {
		missing = append(missing, "name")
	}
	if p.Description == nil {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return domain.Input{}, fmt.Errorf("%w: missing fields %v", ErrDecode, missing)
	}

	in := domain.Input{
		Source:      domain.Source(*p.Source),
		Name:        *p.Name,
		Description: *p.Description,
	}
	if err := validation.IsValidInput(in); err != nil {
		return domain.Input{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return in, nil
}

func unwrapCloudEvent(raw []byte) ([]byte, error) {
	var ce cloudevent.Event
	if err := json.Unmarshal(raw, &ce); err != nil {
		return nil, fmt.Errorf("%w: cloudevent: %v", ErrDecode, err)
	}
	if err := ce.Validate(); err != nil {
		return nil, fmt.Errorf("%w: cloudevent: %v", ErrDecode, err)
	}
	data := bytes.TrimSpace(ce.Data())
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: cloudevent %s has no data", ErrDecode, ce.ID())
	}
	return data, nil
}
