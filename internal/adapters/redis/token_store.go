package redisad

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"travel_gateway/internal/adapters/observability"
)

// TokenStore shares provider access tokens between gateway replicas.
type TokenStore struct{ c *redis.Client }

func New(addr, pass string, db int) *TokenStore {
	return &TokenStore{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (r *TokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		observability.ObserveToken("redis", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveToken("redis", "hit")
	return v, true, nil
}

func (r *TokenStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return r.c.Set(ctx, key, token, ttl).Err()
}

func (r *TokenStore) Del(ctx context.Context, key string) error {
	observability.ObserveToken("redis", "evict")
	return r.c.Del(ctx, key).Err()
}

func (r *TokenStore) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *TokenStore) Close() error { return r.c.Close() }
