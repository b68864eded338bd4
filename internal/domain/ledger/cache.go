package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BalanceCache is a read-through cache in front of the accounts table.
// The database stays the source of truth; the cache is invalidated after
// every committed mutation, so a miss or a redis outage only costs a
// query. A nil client disables caching entirely.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(userID uuid.UUID) string {
	return fmt.Sprintf("billing:balance:%s", userID)
}

// Get returns the cached balance and whether it was present.
func (c *BalanceCache) Get(ctx context.Context, userID uuid.UUID) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	balance, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return balance, true
}

func (c *BalanceCache) Set(ctx context.Context, userID uuid.UUID, balance int) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, balanceKey(userID), strconv.Itoa(balance), c.ttl).Err()
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	// on redis failure the stale entry ages out via TTL
	_ = c.client.Del(ctx, balanceKey(userID)).Err()
}
