package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
)

const redisOpTimeout = 2 * time.Second

type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisCache connects and pings; the caller owns Close.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisCache{
		rdb:    rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}, nil
}

func (c *RedisCache) makeKey(id string) string {
	return c.prefix + id
}

func (c *RedisCache) Set(id string, ev domain.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.makeKey(id), data, c.ttl).Err()
}

func (c *RedisCache) Get(id string) (domain.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	b, err := c.rdb.Get(ctx, c.makeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Event{}, events.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}

	var ev domain.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (c *RedisCache) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := c.rdb.Del(ctx, c.makeKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
