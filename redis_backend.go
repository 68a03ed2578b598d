package redisq

import (
	"context"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// DefaultRedisURL is used when no connection URL is supplied, either as an
// argument or through the REDIS_URL environment variable.
const DefaultRedisURL = "redis://localhost:6379"

// RedisBackend implements Backend on top of one redis list per queue.
// Push maps to RPUSH and Pop to BLPOP, so ordering and atomicity are
// redis's own list guarantees.
type RedisBackend struct {
	Logger      log.Logger
	RedisClient redis.UniversalClient
}

// NewRedisBackend connects to redis at redisURL. An empty redisURL falls
// back to the REDIS_URL environment variable, then to DefaultRedisURL.
func NewRedisBackend(redisURL string, logger log.Logger) (*RedisBackend, error) {
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if redisURL == "" {
		redisURL = DefaultRedisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse redis url %s", redisURL)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &RedisBackend{
		Logger:      logger,
		RedisClient: redis.NewClient(opt),
	}, nil
}

// Push appends payload to the tail of queue.
func (r *RedisBackend) Push(ctx context.Context, queue string, payload []byte) error {
	if err := r.RedisClient.RPush(ctx, queue, payload).Err(); err != nil {
		return errors.Wrapf(ErrConnection, "push to %s: %s", queue, err)
	}
	_ = level.Debug(r.Logger).Log("msg", "enqueued task", "queue", queue)
	return nil
}

// Pop blocks on the head of queue for at most timeout.
func (r *RedisBackend) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := r.RedisClient.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrConnection, "pop from %s: %s", queue, err)
	}
	// BLPOP replies [key, value].
	if len(res) != 2 {
		return nil, errors.Wrapf(ErrConnection, "pop from %s: unexpected reply of length %d", queue, len(res))
	}
	_ = level.Debug(r.Logger).Log("msg", "dequeued task", "queue", queue)
	return []byte(res[1]), nil
}

// Len reports the length of queue.
func (r *RedisBackend) Len(ctx context.Context, queue string) (int64, error) {
	n, err := r.RedisClient.LLen(ctx, queue).Result()
	if err != nil {
		return 0, errors.Wrapf(ErrConnection, "len of %s: %s", queue, err)
	}
	return n, nil
}

// Flush deletes every pending payload in queue.
func (r *RedisBackend) Flush(ctx context.Context, queue string) error {
	if err := r.RedisClient.Del(ctx, queue).Err(); err != nil {
		return errors.Wrapf(ErrConnection, "flush %s: %s", queue, err)
	}
	return nil
}

// Close releases the underlying redis connections.
func (r *RedisBackend) Close() error {
	return r.RedisClient.Close()
}
