// Package lease coordinates watcher ticks across instances with a Redis key.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "link2pay:watcher:lease"
	defaultTTL = 30 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// store defines the operations used by RedisLease.
type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) error
}

// RedisLease implements service.Lease using SET NX PX with an owner token.
type RedisLease struct {
	client store
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	owner string
}

func New(client store, key string, ttl time.Duration) (*RedisLease, error) {
	if client == nil {
		return nil, errors.New("redis client required for lease")
	}
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLease{client: client, key: key, ttl: ttl}, nil
}

// NewFromURL parses a redis:// url and returns a lease backed by it.
func NewFromURL(redisURL, key string, ttl time.Duration) (*RedisLease, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	lease, err := New(&RedisStore{Client: client}, key, ttl)
	if err != nil {
		return nil, nil, err
	}
	return lease, client, nil
}

// Acquire tries to own the lease for the configured TTL.
func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owner = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lease only if the owner token still matches.
func (l *RedisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == "" {
		return nil
	}
	if err := l.client.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	l.owner = ""
	return nil
}

// RedisStore adapts a go-redis client to the lease store.
type RedisStore struct {
	Client redis.Cmdable
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) error {
	err := releaseScript.Run(ctx, s.Client, []string{key}, value).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
