package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"pawtrail/internal/adapters/observability"
)

type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewFromClient wires an existing client; used by tests with miniredis.
func NewFromClient(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, _ := json.Marshal(v)
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

// SetNX stores v only when key is absent; reports whether this call won.
// Backs idempotency keys, phone-code resend cooldowns and wallet nonces.
func (r *Cache) SetNX(ctx context.Context, key string, v any, ttlSec int) (bool, error) {
	b, _ := json.Marshal(v)
	ok, err := r.c.SetNX(ctx, key, b, time.Duration(ttlSec)*time.Second).Result()
	if err != nil {
		return false, err
	}
	if ok {
		observability.ObserveCache("redis", "set")
	}
	return ok, nil
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// Incr bumps a counter, attaching ttl on first increment. Backs the
// failed-login throttle.
func (r *Cache) Incr(ctx context.Context, key string, ttlSec int) (int64, error) {
	n, err := r.c.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttlSec > 0 {
		_ = r.c.Expire(ctx, key, time.Duration(ttlSec)*time.Second).Err()
	}
	return n, nil
}
