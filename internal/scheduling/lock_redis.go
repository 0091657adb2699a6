package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultLockTTL      = 90 * time.Second
	defaultLockInterval = 50 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes a per-session lock with SET NX PX so turns for one
// session are serialized across processes.
type RedisLocker struct {
	redis    *redis.Client
	ttl      time.Duration
	interval time.Duration
	tracer   trace.Tracer
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if client == nil {
		panic("scheduling: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		redis:    client,
		ttl:      ttl,
		interval: defaultLockInterval,
		tracer:   otel.Tracer("healthai.internal.scheduling.lock"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	ctx, span := l.tracer.Start(ctx, "scheduling.acquire_lock")
	defer span.End()

	key := lockKey(sessionID)
	token := uuid.NewString()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scheduling: acquire lock: %w", err)
		}
		if ok {
			return func() {
				// Release with a fresh context so an expired turn context still frees the key.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("session_lock:%s", sessionID)
}
