package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultLockPrefix = "wms:lock:"

// releaseScript deletes the lock only if it still carries our token, so an
// expired lock re-acquired by someone else is never released by us
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisKeyLocker implements KeyLocker with SET NX PX, for multi-instance deployments
type RedisKeyLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// RedisKeyLockerConfig holds the lock timings
type RedisKeyLockerConfig struct {
	KeyPrefix string
	// TTL bounds how long a crashed holder can block others
	TTL time.Duration
	// Wait bounds how long Lock polls before giving up
	Wait  time.Duration
	Retry time.Duration
}

// NewRedisKeyLocker creates a new RedisKeyLocker
func NewRedisKeyLocker(client redis.UniversalClient, cfg RedisKeyLockerConfig, logger *zap.Logger) *RedisKeyLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultLockPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	return &RedisKeyLocker{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		wait:      cfg.Wait,
		retry:     cfg.Retry,
		logger:    logger,
	}
}

// Lock polls SET NX until it holds key, the wait budget runs out, or ctx is done
func (l *RedisKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, shared.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

func (l *RedisKeyLocker) releaser(redisKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release on a fresh context: the caller's may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}
}

var _ shared.KeyLocker = (*RedisKeyLocker)(nil)
