package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

func mockEvent(uuid string, name string) domain.Event {
	return domain.Event{
		UUID:   uuid,
		Name:   name,
		Source: domain.SourceUsers,
	}
}

// TestLRUCacheMultipleEvictions проверяет несколько вытеснений подряд
func TestLRUCacheMultipleEvictions(t *testing.T) {
	c := NewCacheService(2)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))

	// третье событие вытесняет "a"
	require.NoError(t, c.Set("c", mockEvent("c", "third")))
	_, err := c.Get("a")
	assert.ErrorIs(t, err, events.ErrNotFound)

	require.NoError(t, c.Set("d", mockEvent("d", "fourth")))
	_, err = c.Get("b")
	assert.ErrorIs(t, err, events.ErrNotFound)

	val, err := c.Get("c")
	require.NoError(t, err)
	assert.Equal(t, mockEvent("c", "third"), val)

	val, err = c.Get("d")
	require.NoError(t, err)
	assert.Equal(t, mockEvent("d", "fourth"), val)
}

func TestLRUCacheCapacity(t *testing.T) {
	c := NewCacheService(3)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))
	require.NoError(t, c.Set("c", mockEvent("c", "third")))

	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Get(k)
		require.NoError(t, err)
	}

	// "a" использовался раньше всех
	require.NoError(t, c.Set("d", mockEvent("d", "fourth")))
	_, err := c.Get("a")
	assert.Error(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Cap())
}

func TestLRUCacheClearAll(t *testing.T) {
	c := NewCacheService(3)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))

	c.Clear()

	_, err := c.Get("a")
	assert.Error(t, err)
	_, err = c.Get("b")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCacheUpdate(t *testing.T) {
	c := NewCacheService(3)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("a", mockEvent("a", "renamed")))

	val, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, mockEvent("a", "renamed"), val)
	assert.Equal(t, 1, c.Len())
}

// TestLRUCacheEvictionWithOrder: Get делает ключ самым свежим
func TestLRUCacheEvictionWithOrder(t *testing.T) {
	c := NewCacheService(3)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))
	require.NoError(t, c.Set("c", mockEvent("c", "third")))

	_, err := c.Get("a")
	require.NoError(t, err)

	require.NoError(t, c.Set("d", mockEvent("d", "fourth")))

	_, err = c.Get("b")
	assert.Error(t, err)

	for _, k := range []string{"a", "c", "d"} {
		_, err := c.Get(k)
		require.NoError(t, err, k)
	}
}

func TestLRUCacheMultipleEvictionsForMultipleSets(t *testing.T) {
	c := NewCacheService(2)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))
	require.NoError(t, c.Set("a", mockEvent("a", "again")))
	require.NoError(t, c.Set("c", mockEvent("c", "third")))

	_, err := c.Get("b")
	assert.Error(t, err)

	val, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, mockEvent("a", "again"), val)

	assert.Equal(t, 2, len(c.items))
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewCacheService(2)

	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))

	require.NoError(t, c.Delete("a"))
	assert.ErrorIs(t, c.Delete("a"), events.ErrNotFound)

	// освободившееся место не вытесняет "b"
	require.NoError(t, c.Set("c", mockEvent("c", "third")))
	_, err := c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", c.order.Front().Value.(*lruEntry).key)
	assert.Equal(t, "c", c.order.Back().Value.(*lruEntry).key)
}

func TestLRUCacheZeroCapacity(t *testing.T) {
	c := NewCacheService(0)
	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	require.NoError(t, c.Set("b", mockEvent("b", "second")))
	assert.Equal(t, 1, c.Len())
}

func TestLRUCacheTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCacheService(4, WithTTL(time.Minute))
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("a", mockEvent("a", "first")))

	now = now.Add(59 * time.Second)
	_, err := c.Get("a")
	require.NoError(t, err)

	// повторный Set продлевает срок
	require.NoError(t, c.Set("a", mockEvent("a", "first")))
	now = now.Add(59 * time.Second)
	_, err = c.Get("a")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = c.Get("a")
	assert.ErrorIs(t, err, events.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}
