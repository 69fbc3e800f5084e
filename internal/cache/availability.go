package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	TTLSec   int
}

// AvailabilityCache keeps short-lived copies of event availability for
// listing pages. The cache is strictly advisory: the conditional
// decrement in the inventory layer is the only authority, so a stale
// value here can never cause overselling.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(cfg Config) (*AvailabilityCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.TTLSec) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &AvailabilityCache{client: rdb, ttl: ttl}, nil
}

func availabilityKey(eventID int64) string {
	return fmt.Sprintf("availability:%d", eventID)
}

func (c *AvailabilityCache) Get(ctx context.Context, eventID int64) (int, error) {
	val, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("availability not cached for event %d", eventID)
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	available, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid availability in cache: %w", err)
	}
	return available, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, eventID int64, available int) error {
	return c.client.Set(ctx, availabilityKey(eventID), strconv.Itoa(available), c.ttl).Err()
}

// Invalidate drops the cached value after a reserve or release.
// Best-effort: a failure just means listing pages see a slightly stale
// number until the TTL expires.
func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID int64) error {
	return c.client.Del(ctx, availabilityKey(eventID)).Err()
}

func (c *AvailabilityCache) Close() error {
	return c.client.Close()
}
