package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository is the cache behind the duplicate-interchange check. SetNX
// is the whole trick: the first writer of a hash wins the TTL window.
type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	GetCacheSize(ctx context.Context, prefix string) (int, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) Repository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	wasSet, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return wasSet, nil
}

// GetCacheSize counts the live window markers under the given prefix.
// SCAN-based, so it is approximate under concurrent expiry.
func (r *RedisRepository) GetCacheSize(ctx context.Context, prefix string) (int, error) {
	var count int

	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return count, nil
}
