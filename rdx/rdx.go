package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Connect opens a client and pings the server.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return conn, nil
}

// JSONCache stores JSON-encoded values under a key prefix.
type JSONCache struct {
	conn   *redis.Client
	prefix string
}

func NewJSONCache(conn *redis.Client, prefix string) *JSONCache {
	return &JSONCache{conn: conn, prefix: prefix}
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *JSONCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.conn.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockBusy = errors.New("lock is held by another worker")

// Locker is a SETNX-based mutual exclusion across processes.
type Locker struct {
	conn *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// NewLocker returns a locker whose locks expire after ttl and whose Acquire
// polls for at most wait before giving up.
func NewLocker(conn *redis.Client, ttl, wait time.Duration) *Locker {
	return &Locker{conn: conn, ttl: ttl, wait: wait}
}

// Acquire takes the lock named key. The returned func releases it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.conn.SetNX(ctx, "lock:"+key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// released even when ctx is already cancelled
				releaseScript.Run(context.Background(), l.conn, []string{"lock:" + key}, token)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
