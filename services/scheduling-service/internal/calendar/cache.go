package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
)

// BusyCache is a read-through cache over the aggregated feed result. Keys
// embed a per-owner generation counter: invalidation bumps the counter, which
// orphans every cached range for that owner without a scan.
type BusyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBusyCache(client *redis.Client, ttl time.Duration) *BusyCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &BusyCache{client: client, ttl: ttl}
}

func (c *BusyCache) Get(ctx context.Context, ownerID string, from, to time.Time) ([]availability.BusyInterval, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	key, err := c.key(ctx, ownerID, from, to)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var busy []availability.BusyInterval
	if err := json.Unmarshal(raw, &busy); err != nil {
		return nil, false, err
	}
	return busy, true, nil
}

func (c *BusyCache) Set(ctx context.Context, ownerID string, from, to time.Time, busy []availability.BusyInterval) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, ownerID, from, to)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(busy)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the owner's generation so subsequent reads miss. Old
// entries age out via TTL.
func (c *BusyCache) Invalidate(ctx context.Context, ownerID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, genKey(ownerID)).Err()
}

func (c *BusyCache) key(ctx context.Context, ownerID string, from, to time.Time) (string, error) {
	gen, err := c.client.Get(ctx, genKey(ownerID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("busy:%s:%d:%d:%d", ownerID, gen, from.Unix(), to.Unix()), nil
}

func genKey(ownerID string) string {
	return "busy:gen:" + ownerID
}
