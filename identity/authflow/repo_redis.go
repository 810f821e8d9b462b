package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores flow states in Redis so a callback can be completed by
// any process sharing the instance. Expiry is left to Redis.
type RedisRepo struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisRepo(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRepo{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisRepo) key(state string) string {
	return r.prefix + ":authflow:" + state
}

func (r *RedisRepo) Upsert(ctx context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}
	raw, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("[RedisRepo.Upsert] marshal: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(state), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.Upsert] set: %w", err)
	}
	return nil
}

// Take reads and deletes the state atomically.
func (r *RedisRepo) Take(ctx context.Context, state string) (*AuthFlowState, error) {
	raw, err := r.rdb.GetDel(ctx, r.key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo.Take] getdel: %w", err)
	}
	var s AuthFlowState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("[RedisRepo.Take] unmarshal: %w", err)
	}
	return &s, nil
}
