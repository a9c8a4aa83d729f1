package sessions

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/rollinit/rollinit/internal/domain/session"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

const (
	sessionKeyPrefix  = "session:"
	joinCodeKeyPrefix = "joincode:"
)

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

type redisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a new Redis-backed session repository
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

func (r *redisRepository) Create(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize session")
	}

	// Claim the join code first; SETNX keeps two creates from sharing one.
	claimed, err := r.client.SetNX(ctx, joinCodeKeyPrefix+sess.JoinCode, sess.ID, 0).Result()
	if err != nil {
		return rollerr.Wrap(err, "failed to claim join code")
	}
	if !claimed {
		return rollerr.AlreadyExists("join code already in use").WithMeta("join_code", sess.JoinCode)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+sess.ID, data, 0).Err(); err != nil {
		return rollerr.Wrap(err, "failed to store session")
	}

	return nil
}

func (r *redisRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, rollerr.NotFoundf("session not found: %s", id)
		}
		return nil, rollerr.Wrap(err, "failed to get session")
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, rollerr.Wrap(err, "failed to deserialize session")
	}

	return &sess, nil
}

func (r *redisRepository) GetByJoinCode(ctx context.Context, joinCode string) (*session.Session, error) {
	id, err := r.client.Get(ctx, joinCodeKeyPrefix+joinCode).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, rollerr.NotFound("session not found")
		}
		return nil, rollerr.Wrap(err, "failed to look up join code")
	}

	return r.Get(ctx, id)
}

func (r *redisRepository) Update(ctx context.Context, sess *session.Session) error {
	existing, err := r.Get(ctx, sess.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize session")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.ID, data, 0)

	if existing.JoinCode != sess.JoinCode {
		pipe.Del(ctx, joinCodeKeyPrefix+existing.JoinCode)
		pipe.Set(ctx, joinCodeKeyPrefix+sess.JoinCode, sess.ID, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return rollerr.Wrap(err, "failed to update session")
	}

	return nil
}
