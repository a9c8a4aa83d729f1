package combatants

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rollinit/rollinit/internal/domain/session"
	"github.com/rollinit/rollinit/internal/domain/shared"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

const combatantKeyPrefix = "combatant:"

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

type redisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a new Redis-backed combatant repository
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

func sessionListKey(sessionID string) string {
	return "session:" + sessionID + ":combatants"
}

func (r *redisRepository) Create(ctx context.Context, c *session.Combatant) error {
	data, err := json.Marshal(c)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize combatant")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, combatantKeyPrefix+c.ID, data, 0)
	pipe.RPush(ctx, sessionListKey(c.SessionID), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return rollerr.Wrap(err, "failed to create combatant")
	}
	return nil
}

func (r *redisRepository) Get(ctx context.Context, id string) (*session.Combatant, error) {
	data, err := r.client.Get(ctx, combatantKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, rollerr.NotFoundf("combatant not found: %s", id)
		}
		return nil, rollerr.Wrap(err, "failed to get combatant")
	}

	var c session.Combatant
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, rollerr.Wrap(err, "failed to deserialize combatant")
	}
	return &c, nil
}

func (r *redisRepository) Update(ctx context.Context, c *session.Combatant) error {
	exists, err := r.client.Exists(ctx, combatantKeyPrefix+c.ID).Result()
	if err != nil {
		return rollerr.Wrap(err, "failed to check combatant")
	}
	if exists == 0 {
		return rollerr.NotFoundf("combatant not found: %s", c.ID)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize combatant")
	}

	if err := r.client.Set(ctx, combatantKeyPrefix+c.ID, data, 0).Err(); err != nil {
		return rollerr.Wrap(err, "failed to update combatant")
	}
	return nil
}

func (r *redisRepository) Delete(ctx context.Context, id string) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, combatantKeyPrefix+id)
	pipe.LRem(ctx, sessionListKey(c.SessionID), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return rollerr.Wrap(err, "failed to delete combatant")
	}
	return nil
}

func (r *redisRepository) ListBySession(ctx context.Context, sessionID string) ([]*session.Combatant, error) {
	ids, err := r.client.LRange(ctx, sessionListKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, rollerr.Wrap(err, "failed to list combatants")
	}

	out := make([]*session.Combatant, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if err != nil {
			if rollerr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *redisRepository) FindPlayerCharacterByName(ctx context.Context, sessionID, name string) (*session.Combatant, error) {
	all, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, c := range all {
		if c.Type == shared.CombatantTypePlayerCharacter && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, rollerr.NotFoundf("no player character named %q", name)
}
