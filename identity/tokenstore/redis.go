package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/learnpath/identity"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultRedisTTL = 30 * 24 * time.Hour

var _ Store = (*Redis)(nil)

// Redis stores the session under a single key and announces every write on
// a pub/sub channel, so processes sharing the key see each other's sign-in
// and sign-out.
type Redis struct {
	rdb        redis.UniversalClient
	key        string
	channel    string
	ttl        time.Duration
	instanceID string
}

// NewRedis creates a Redis store. prefix namespaces the key and channel;
// ttl bounds how long an abandoned session survives (0 uses 30 days).
func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "learnpath"
	}
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &Redis{
		rdb:        rdb,
		key:        prefix + ":session",
		channel:    prefix + ":session:events",
		ttl:        ttl,
		instanceID: uuid.NewString(),
	}
}

// Channel is the pub/sub channel change notifications are published on.
func (r *Redis) Channel() string {
	return r.channel
}

func (r *Redis) Load(ctx context.Context) (*identity.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[Redis Load] %w", err)
	}
	var s identity.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("[Redis Load] corrupt session: %w", err)
	}
	return &s, nil
}

func (r *Redis) Save(ctx context.Context, session *identity.Session) error {
	if session == nil {
		return r.Delete(ctx)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[Redis Save] %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("[Redis Save] %w", err)
	}
	r.announce(ctx)
	return nil
}

func (r *Redis) Delete(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("[Redis Delete] %w", err)
	}
	r.announce(ctx)
	return nil
}

// announce is best effort: a lost notification only delays propagation
// until the next Load.
func (r *Redis) announce(ctx context.Context) {
	if err := r.rdb.Publish(ctx, r.channel, r.instanceID).Err(); err != nil {
		log.Warn().Err(err).Str("channel", r.channel).Msg("failed to publish session change")
	}
}

func (r *Redis) Watch(ctx context.Context, fn func()) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("[Redis Watch] subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == r.instanceID {
				continue
			}
			fn()
		}
	}
}
