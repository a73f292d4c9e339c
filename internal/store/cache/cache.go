// Package cache keeps idempotency records in Redis in front of the database
// and serializes concurrent imports that share an idempotency key.
//
// Both concerns are best effort: a Redis outage degrades to database lookups
// and unserialized imports, which the database unique key still keeps correct.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a cached record lives
	DefaultTTL = 24 * time.Hour

	// DefaultLockTTL bounds how long an import may hold its key lock
	DefaultLockTTL = 30 * time.Second
)

// Config holds the Redis connection settings
type Config struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"cache_ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// IdempotencyCache caches idempotency records and hands out per-key locks
type IdempotencyCache struct {
	client  *redis.Client
	locker  *redislock.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  logger.Logger
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, cfg Config) (*IdempotencyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 100,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.TTL, cfg.LockTTL), nil
}

// NewWithClient wraps an existing client. Non-positive durations use the defaults.
func NewWithClient(client *redis.Client, ttl, lockTTL time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &IdempotencyCache{
		client:  client,
		locker:  redislock.New(client),
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger.GetGlobalLogger().WithComponent("idempotency_cache"),
	}
}

// RecordKey is the Redis key holding a cached record
func RecordKey(key string) string {
	return "idempotency:" + key
}

// LockKey is the Redis key used to serialize imports for an idempotency key
func LockKey(key string) string {
	return "lock:idempotency:" + key
}

// Get returns the cached record, if any
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*models.IdempotencyRecord, bool) {
	raw, err := c.client.Get(ctx, RecordKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("idempotency_key", key).Warn("Cache lookup failed")
		return nil, false
	}

	var rec models.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WithError(err).WithField("idempotency_key", key).Warn("Discarding undecodable cache entry")
		return nil, false
	}
	return &rec, true
}

// Put caches a record. Records never change, so an existing entry is kept.
func (c *IdempotencyCache) Put(ctx context.Context, rec *models.IdempotencyRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode idempotency record")
		return
	}
	if err := c.client.SetNX(ctx, RecordKey(rec.Key), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("idempotency_key", rec.Key).Warn("Cache write failed")
	}
}

// Lock obtains the per-key lock, retrying until ctx is done or the lock TTL
// elapses. The returned release func is always safe to call.
func (c *IdempotencyCache) Lock(ctx context.Context, key string) (func(), error) {
	backoff := redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(c.lockTTL/(100*time.Millisecond)))
	lock, err := c.locker.Obtain(ctx, LockKey(key), c.lockTTL, &redislock.Options{RetryStrategy: backoff})
	if err != nil {
		return func() {}, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && err != redislock.ErrLockNotHeld {
			c.logger.WithError(err).WithField("idempotency_key", key).Warn("Failed to release lock")
		}
	}, nil
}

// Close closes the Redis client
func (c *IdempotencyCache) Close() error {
	return c.client.Close()
}
