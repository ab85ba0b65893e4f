package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the lock and idempotency backends the ledger commands use
type Coordination struct {
	Locker      shared.KeyLocker
	Idempotency shared.IdempotencyStore
	Backend     string // "redis" or "memory"

	client redis.UniversalClient
}

// Close releases the idempotency store and the Redis client, if any
func (c *Coordination) Close() error {
	err := c.Idempotency.Close()
	if c.client != nil {
		if cerr := c.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Ping checks the Redis backend. The in-memory backend is always healthy.
func (c *Coordination) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// NewCoordination picks Redis when enabled and reachable. Redis being enabled
// but unreachable is an error: silently falling back would let two instances
// each believe they hold the same lock.
func NewCoordination(ctx context.Context, redisCfg config.RedisConfig, ledgerCfg config.LedgerConfig, logger *zap.Logger) (*Coordination, error) {
	if !redisCfg.Enabled {
		logger.Warn("redis disabled, using in-memory locks and idempotency; run a single instance only")
		return NewInMemoryCoordination(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisCfg.Addr(), err)
	}

	logger.Info("using Redis locks and idempotency", zap.String("addr", redisCfg.Addr()))
	return NewRedisCoordination(client, ledgerCfg, logger), nil
}

// NewRedisCoordination builds both backends on an existing client
func NewRedisCoordination(client redis.UniversalClient, ledgerCfg config.LedgerConfig, logger *zap.Logger) *Coordination {
	return &Coordination{
		Locker: NewRedisKeyLocker(client, RedisKeyLockerConfig{
			TTL:  ledgerCfg.LockTTL,
			Wait: ledgerCfg.LockWait,
		}, logger.Named("locker")),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Backend:     "redis",
		client:      client,
	}
}

// NewInMemoryCoordination builds process-local backends
func NewInMemoryCoordination() *Coordination {
	return &Coordination{
		Locker:      NewInMemoryKeyLocker(),
		Idempotency: NewInMemoryIdempotencyStore(0),
		Backend:     "memory",
	}
}
