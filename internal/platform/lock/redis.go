package lock

import (
	"context"
	"log/slog"
	"time"

	"votecore/contexts/elections/tally-service/ports"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still carries our token, so a
// holder whose lease expired cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

type Redis struct {
	client redis.Cmdable
	prefix string
	logger *slog.Logger
}

func NewRedis(client redis.Cmdable, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, prefix: "votecore:lock:", logger: logger}
}

func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.Unlock, bool, error) {
	name := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		r.logger.Error("redis lock acquire failed",
			"event", "redis_lock_acquire_failed",
			"module", "internal/platform/lock",
			"layer", "platform",
			"lock_key", name,
			"error", err.Error(),
		)
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, r.client, []string{name}, token).Int()
		if err != nil {
			return err
		}
		if released == 0 {
			r.logger.Warn("redis lock expired before release",
				"event", "redis_lock_release_stale",
				"module", "internal/platform/lock",
				"layer", "platform",
				"lock_key", name,
			)
		}
		return nil
	}, true, nil
}
