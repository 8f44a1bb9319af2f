package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/resilience"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	KeyPrefix          string
	ResilienceExecutor *resilience.Executor
}

// Cache is the external CacheClient backed by Redis.
type Cache struct {
	rc       redis.UniversalClient
	prefix   string
	executor *resilience.Executor
}

// NewFromURL parses a redis:// URL. It does not dial; Connect does.
func NewFromURL(rawURL string, options Options) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return New(redis.NewClient(opts), options), nil
}

func New(rc redis.UniversalClient, options Options) *Cache {
	return &Cache{
		rc:       rc,
		prefix:   options.KeyPrefix,
		executor: options.ResilienceExecutor,
	}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Cache) Connect(ctx context.Context) error {
	err := resilience.Run(ctx, c.executor, "redis.ping", func(callCtx context.Context) error {
		return c.rc.Ping(callCtx).Err()
	}, classifyRedisError)
	if err != nil {
		return wrapTemporaryIfNeeded("redis connect", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	type result struct {
		value string
		found bool
	}
	res, err := resilience.Call(ctx, c.executor, "redis.get", func(callCtx context.Context) (result, error) {
		v, err := c.rc.Get(callCtx, c.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			return result{}, nil
		}
		if err != nil {
			return result{}, err
		}
		return result{value: v, found: true}, nil
	}, classifyRedisError)
	if err != nil {
		return "", false, wrapTemporaryIfNeeded("redis get", err)
	}
	return res.value, res.found, nil
}

// Set without ttl persists the key; a non-positive ttl deletes it.
func (c *Cache) Set(ctx context.Context, key, value string, ttl ...time.Duration) error {
	if len(ttl) > 0 && ttl[0] <= 0 {
		return c.Del(ctx, key)
	}
	var expiration time.Duration
	if len(ttl) > 0 {
		expiration = ttl[0]
	}
	err := resilience.Run(ctx, c.executor, "redis.set", func(callCtx context.Context) error {
		return c.rc.Set(callCtx, c.key(key), value, expiration).Err()
	}, classifyRedisError)
	if err != nil {
		return wrapTemporaryIfNeeded("redis set", err)
	}
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	err := resilience.Run(ctx, c.executor, "redis.del", func(callCtx context.Context) error {
		return c.rc.Del(callCtx, c.key(key)).Err()
	}, classifyRedisError)
	if err != nil {
		return wrapTemporaryIfNeeded("redis del", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.rc.Close()
}

var classifyRedisError = resilience.TransientClassifier(func(err error) bool {
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, redis.ErrPoolTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
})

func wrapTemporaryIfNeeded(op string, err error) error {
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyRedisError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
