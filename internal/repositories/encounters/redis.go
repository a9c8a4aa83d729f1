package encounters

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/rollinit/rollinit/internal/domain/combat"
	rollerr "github.com/rollinit/rollinit/internal/errors"
)

const encounterKeyPrefix = "encounter:"

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

type redisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a new Redis-backed encounter repository
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

func sessionEncountersKey(sessionID string) string {
	return "session:" + sessionID + ":encounters"
}

func (r *redisRepository) Create(ctx context.Context, encounter *combat.Encounter) error {
	data, err := json.Marshal(encounter)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize encounter")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, encounterKeyPrefix+encounter.ID, data, 0)
	pipe.RPush(ctx, sessionEncountersKey(encounter.SessionID), encounter.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return rollerr.Wrap(err, "failed to create encounter")
	}
	return nil
}

func (r *redisRepository) Get(ctx context.Context, id string) (*combat.Encounter, error) {
	data, err := r.client.Get(ctx, encounterKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, rollerr.NotFoundf("encounter not found: %s", id)
		}
		return nil, rollerr.Wrap(err, "failed to get encounter")
	}

	var encounter combat.Encounter
	if err := json.Unmarshal(data, &encounter); err != nil {
		return nil, rollerr.Wrap(err, "failed to deserialize encounter")
	}
	return &encounter, nil
}

// Update rewrites the whole aggregate under one key, which is what makes
// sort-order reassignment and bulk initiative application atomic.
func (r *redisRepository) Update(ctx context.Context, encounter *combat.Encounter) error {
	exists, err := r.client.Exists(ctx, encounterKeyPrefix+encounter.ID).Result()
	if err != nil {
		return rollerr.Wrap(err, "failed to check encounter")
	}
	if exists == 0 {
		return rollerr.NotFoundf("encounter not found: %s", encounter.ID)
	}

	data, err := json.Marshal(encounter)
	if err != nil {
		return rollerr.Wrap(err, "failed to serialize encounter")
	}

	if err := r.client.Set(ctx, encounterKeyPrefix+encounter.ID, data, 0).Err(); err != nil {
		return rollerr.Wrap(err, "failed to update encounter")
	}
	return nil
}

func (r *redisRepository) ListBySession(ctx context.Context, sessionID string) ([]*combat.Encounter, error) {
	ids, err := r.client.LRange(ctx, sessionEncountersKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, rollerr.Wrap(err, "failed to list encounters")
	}

	out := make([]*combat.Encounter, 0, len(ids))
	for _, id := range ids {
		encounter, err := r.Get(ctx, id)
		if err != nil {
			if rollerr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, encounter)
	}
	return out, nil
}
