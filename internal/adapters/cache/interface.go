package cache

import domain "github.com/Camillus83/eventmanager/internal/domain/event"

// Cache keeps events by uuid. A miss is events.ErrNotFound.
type Cache interface {
	Set(key string, ev domain.Event) error
	Get(key string) (domain.Event, error)
	Delete(key string) error
}
