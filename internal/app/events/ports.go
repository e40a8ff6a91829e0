package events

import (
	"context"
	"time"

	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

type EventCreator interface {
	CreateEvent(ctx context.Context, in domain.Input) (domain.Event, error)
}

type EventUpdater interface {
	UpdateEvent(ctx context.Context, uuid string, in domain.Input) (domain.Event, error)
}

type EventGetter interface {
	GetEvent(ctx context.Context, uuid string) (domain.Event, error)
}

type EventDeleter interface {
	DeleteEvent(ctx context.Context, uuid string) error
}

type EventLister interface {
	ListEvents(ctx context.Context, filters ListFilters, request PageRequest) ([]domain.Event, error)
	AllEvents(ctx context.Context) ([]domain.Event, error)
}

// EventRepo is the persistence side of the event store. The repo receives a
// fully formed uuid; identity is assigned above it.
type EventRepo interface {
	InsertEvent(ctx context.Context, uuid string, in domain.Input) (domain.Event, error)
	EventUpdater
	EventGetter
	EventDeleter
	EventLister
}

// TextFilter matches a text column. Empty pointers are ignored.
type TextFilter struct {
	Exact      *string
	Contains   *string
	StartsWith *string
}

func (f TextFilter) IsZero() bool {
	return f.Exact == nil && f.Contains == nil && f.StartsWith == nil
}

// TimeFilter matches a timestamp column; bounds are inclusive.
type TimeFilter struct {
	Exact *time.Time
	From  *time.Time
	To    *time.Time
}

func (f TimeFilter) IsZero() bool {
	return f.Exact == nil && f.From == nil && f.To == nil
}

type ListFilters struct {
	Name        TextFilter
	Description TextFilter
	// Source supports exact and contains only.
	Source    TextFilter
	CreatedAt TimeFilter
	UpdatedAt TimeFilter
}

type PageRequest struct {
	Limit   int
	Offset  int
	SortBy  string
	SortDir string
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)
