package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/adapters/cache"
	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/validation"
)

// EventService is the Event Store: it assigns identity, validates input and
// keeps the read cache in step with the repo.
type EventService struct {
	repo         events.EventRepo
	cacheService cache.Cache
	newUUID      func() string
}

func NewEventService(repo events.EventRepo, cache cache.Cache) *EventService {
	return &EventService{repo: repo, cacheService: cache, newUUID: func() string { return uuid.New().String() }}
}

func (serv *EventService) CreateEvent(ctx context.Context, in domain.Input) (domain.Event, error) {
	if err := validation.IsValidInput(in); err != nil {
		return domain.Event{}, err
	}

	ev, err := serv.repo.InsertEvent(ctx, serv.newUUID(), in)
	if errors.Is(err, events.ErrConflict) {
		// коллизия uuid: одна повторная попытка с новым идентификатором
		ev, err = serv.repo.InsertEvent(ctx, serv.newUUID(), in)
	}
	if err != nil {
		return domain.Event{}, err
	}
	serv.cacheSet(ev)
	return ev, nil
}

func (serv *EventService) UpdateEvent(ctx context.Context, id string, in domain.Input) (domain.Event, error) {
	id, err := parseUUID(id)
	if err != nil {
		return domain.Event{}, err
	}
	if err := validation.IsValidInput(in); err != nil {
		return domain.Event{}, err
	}

	ev, err := serv.repo.UpdateEvent(ctx, id, in)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			_ = serv.cacheService.Delete(id)
		}
		return domain.Event{}, err
	}
	serv.cacheSet(ev)
	return ev, nil
}

func (serv *EventService) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	id, err := parseUUID(id)
	if err != nil {
		return domain.Event{}, err
	}

	if ev, err := serv.cacheService.Get(id); err == nil {
		return ev, nil
	}
	ev, err := serv.repo.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	serv.cacheSet(ev)
	return ev, nil
}

func (serv *EventService) DeleteEvent(ctx context.Context, id string) error {
	id, err := parseUUID(id)
	if err != nil {
		return err
	}

	_ = serv.cacheService.Delete(id)
	return serv.repo.DeleteEvent(ctx, id)
}

// ListEvents отдает события по фильтрам и пагинации.
func (serv *EventService) ListEvents(ctx context.Context, filters events.ListFilters, req events.PageRequest) ([]domain.Event, error) {
	events.NormalizeListFilters(&filters)
	events.NormalizeRequest(&req)
	return serv.repo.ListEvents(ctx, filters, req)
}

func (serv *EventService) AllEvents(ctx context.Context) ([]domain.Event, error) {
	return serv.repo.AllEvents(ctx)
}

/* helpers */

func (serv *EventService) cacheSet(ev domain.Event) {
	if err := serv.cacheService.Set(ev.UUID, ev); err != nil {
		logging.LogWarn("cache set failed", logrus.Fields{"uuid": ev.UUID, "error": err.Error()})
	}
}

// parseUUID returns the canonical lower-case form.
func parseUUID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", events.ErrInvalidIdentifier, id)
	}
	return u.String(), nil
}
