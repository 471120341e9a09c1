package store

import (
	"context"
	"errors"
	"time"

	"catalogsync/internal/platform/store/rds"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete deletes KEYS[1] only while it still holds ARGV[1]
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// kvAdapter wraps rds.Client and implements KV
type kvAdapter struct {
	c *rds.Client
}

func newKVAdapter(c *rds.Client) *kvAdapter { return &kvAdapter{c: c} }

func (a *kvAdapter) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return a.c.SetNX(ctx, key, value, ttl).Result()
}

func (a *kvAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := a.c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (a *kvAdapter) Del(ctx context.Context, keys ...string) (int64, error) {
	return a.c.Client.Del(ctx, keys...).Result()
}

func (a *kvAdapter) HMGet(ctx context.Context, key string, fields ...string) ([]any, error) {
	return a.c.Client.HMGet(ctx, key, fields...).Result()
}

func (a *kvAdapter) HSet(ctx context.Context, key string, values map[string]string) (int64, error) {
	args := make([]any, 0, len(values)*2)
	for f, v := range values {
		args = append(args, f, v)
	}
	return a.c.Client.HSet(ctx, key, args...).Result()
}

func (a *kvAdapter) HLen(ctx context.Context, key string) (int64, error) {
	return a.c.Client.HLen(ctx, key).Result()
}

func (a *kvAdapter) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, a.c.Client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (a *kvAdapter) Ping(ctx context.Context) error {
	if a == nil || a.c == nil {
		return errors.New("kv: nil adapter")
	}
	return a.c.Client.Ping(ctx).Err()
}

func (a *kvAdapter) Close() error { return a.c.Close() }
