package dicerolls

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/rollinit/rollinit/internal/domain/session"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

// redisRepository stores serialized rolls directly in a capped list per
// session, newest at the head.
type redisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a new Redis-backed dice-roll repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}
	return &redisRepository{client: cfg.Client}
}

// NewRedis creates a Redis repository from a bare client
func NewRedis(client redis.UniversalClient) Repository {
	return NewRedisRepository(&RedisRepoConfig{Client: client})
}

func sessionRollsKey(sessionID string) string {
	return "session:" + sessionID + ":dicerolls"
}

func (r *redisRepository) Create(ctx context.Context, roll *session.DiceRoll) error {
	data, err := json.Marshal(roll)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize dice roll")
	}

	key := sessionRollsKey(roll.SessionID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, retainCount-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return rollerr.Wrap(err, "failed to log dice roll")
	}
	return nil
}

func (r *redisRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*session.DiceRoll, error) {
	entries, err := r.client.LRange(ctx, sessionRollsKey(sessionID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, rollerr.Wrap(err, "failed to list dice rolls")
	}

	out := make([]*session.DiceRoll, 0, len(entries))
	for _, entry := range entries {
		var roll session.DiceRoll
		if err := json.Unmarshal([]byte(entry), &roll); err != nil {
			return nil, rollerr.Wrap(err, "failed to deserialize dice roll")
		}
		out = append(out, &roll)
	}
	return out, nil
}
