package store

import (
	"context"
	"fmt"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/pkg/redis"
)

// RedisStore mirrors the latest snapshot into Redis for the API layer.
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore creates a store on top of the shared Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{cache: redis.NewCache(client, "movers")}
}

// LoadLast returns the cached snapshot, or nil when absent or Redis is disabled
func (s *RedisStore) LoadLast(ctx context.Context) (*movers.MarketSnapshot, error) {
	var snapshot movers.MarketSnapshot
	found, err := s.cache.Get(ctx, redis.SnapshotKey, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("redis load snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

// Save stores the snapshot without expiry
func (s *RedisStore) Save(ctx context.Context, snapshot *movers.MarketSnapshot) error {
	if err := s.cache.Set(ctx, redis.SnapshotKey, snapshot, redis.TTLNone); err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}
