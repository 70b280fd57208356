package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache keeps computed trial balances in Redis behind a per-org
// version counter. Writes bump the version instead of deleting keys,
// so invalidation is one INCR regardless of how many scoped variants
// were cached.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache wires a trial-balance cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) versionKey(orgID int64) string {
	return fmt.Sprintf("zinsbuch:ledger:tb:version:%d", orgID)
}

func (c *Cache) entryKey(q Query, version int64) string {
	from, to := "", ""
	if q.From != nil {
		from = q.From.Format("2006-01-02")
	}
	if q.To != nil {
		to = q.To.Format("2006-01-02")
	}
	return fmt.Sprintf("zinsbuch:ledger:tb:%d:%d:%d:%s:%s", q.OrgID, version, q.PropertyID, from, to)
}

// Invalidate bumps the org's cache version so every cached trial
// balance for the org expires logically at once.
func (c *Cache) Invalidate(ctx context.Context, orgID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(orgID)).Err()
}

// TrialBalance returns the cached trial balance or computes it via
// build. Concurrent misses for the same key collapse into one build.
func (c *Cache) TrialBalance(ctx context.Context, q Query, build func(context.Context) (*TrialBalance, error)) (*TrialBalance, error) {
	if c == nil || c.client == nil {
		return build(ctx)
	}
	version, err := c.client.Get(ctx, c.versionKey(q.OrgID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return build(ctx)
	}
	key := c.entryKey(q, version)

	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var tb TrialBalance
		if err := json.Unmarshal(payload, &tb); err == nil {
			return &tb, nil
		}
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		tb, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(tb); err == nil {
			c.client.Set(ctx, key, payload, c.ttl)
		}
		return tb, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*TrialBalance), nil
}
