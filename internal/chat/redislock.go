package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisLockTTL   = 30 * time.Second
	redisLockRetry = 100 * time.Millisecond
)

// Only the holder of the token may release or extend the lock.
var (
	unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker serializes turns across server replicas sharing one Redis.
// A held lock is extended in the background until released, so long
// streams do not outlive it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker connects to redisURL and checks it answers.
func NewRedisLocker(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisLocker{
		client: client,
		ttl:    redisLockTTL,
		retry:  redisLockRetry,
		logger: logger,
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func lockKey(sessionID int64) string {
	return fmt.Sprintf("thinkstream:session:%d:lock", sessionID)
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID int64) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	done := make(chan struct{})
	go l.keepAlive(key, token, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("Failed to release session lock",
					zap.Int64("sessionId", sessionID),
					zap.Error(err))
			}
		})
	}, nil
}

func (l *RedisLocker) keepAlive(key, token string, done <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				l.logger.Warn("Failed to extend session lock", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				l.logger.Warn("Session lock lost", zap.String("key", key))
				return
			}
		}
	}
}
