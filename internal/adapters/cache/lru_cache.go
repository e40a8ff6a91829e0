package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

type lruEntry struct {
	key     string
	value   domain.Event
	expires time.Time // zero — без срока жизни
}

// CacheService — потокобезопасный LRU с необязательным TTL на запись.
// Front списка — самая свежая запись, Back — кандидат на вытеснение.
type CacheService struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type LRUOption func(*CacheService)

// WithTTL expires entries d after their last Set. Zero keeps them until evicted.
func WithTTL(d time.Duration) LRUOption {
	return func(c *CacheService) { c.ttl = d }
}

func NewCacheService(capacity int, opts ...LRUOption) *CacheService {
	if capacity <= 0 {
		capacity = 1
	}
	c := &CacheService{
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CacheService) Set(key string, value domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*lruEntry)
		e.value, e.expires = value, expires
		c.order.MoveToFront(el)
		return nil
	}

	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: value, expires: expires})
	return nil
}

// Get на промахе или просроченной записи возвращает events.ErrNotFound.
func (c *CacheService) Get(key string) (domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return domain.Event{}, events.ErrNotFound
	}
	e := el.Value.(*lruEntry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.removeElement(el)
		return domain.Event{}, events.ErrNotFound
	}
	c.order.MoveToFront(el)
	return e.value, nil
}

func (c *CacheService) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return events.ErrNotFound
	}
	c.removeElement(el)
	return nil
}

func (c *CacheService) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *CacheService) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CacheService) Cap() int { return c.capacity }

func (c *CacheService) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*lruEntry).key)
}
