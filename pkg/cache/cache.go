package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss   = errors.New("cache: key not found")
	ErrLockNotHeld = errors.New("cache: lock not held")
)

// Service defines the key-value operations the registry relies on.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	AddMembers(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// WithLock runs fn while holding key. It polls every retry until ctx ends.
func WithLock(ctx context.Context, c Service, key string, ttl, retry time.Duration, fn func() error) error {
	for {
		token, ok, err := c.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer func() { _ = c.Unlock(context.WithoutCancel(ctx), key, token) }()
			return fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}
