package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetAvailability caches an event's free-slot count for dashboard reads.
// The database stays authoritative; purchase paths never consult this.
func (c *Cache) SetAvailability(ctx context.Context, eventID string, available int, ttl time.Duration) error {
	return c.client.Set(ctx, "avail:"+eventID, available, ttl).Err()
}

// GetAvailability returns the cached count, or ok=false on a miss.
func (c *Cache) GetAvailability(ctx context.Context, eventID string) (int, bool, error) {
	val, err := c.client.Get(ctx, "avail:"+eventID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// InvalidateAvailability drops the cached count after a purchase or issue.
func (c *Cache) InvalidateAvailability(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, "avail:"+eventID).Err()
}
