package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spapperi-configurator/pkg/configurator"

	"github.com/redis/go-redis/v9"
)

// commander is the part of redis.Cmdable the store uses.
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdentityStore keeps a visitor's conversation id in Redis so every device of the
// visitor resumes the same conversation.
type IdentityStore struct {
	rdb commander
	key string
}

func NewIdentityStore(rdb redis.Cmdable, visitorID string) *IdentityStore {
	return newIdentityStore(rdb, visitorID)
}

func newIdentityStore(rdb commander, visitorID string) *IdentityStore {
	return &IdentityStore{rdb: rdb, key: Key(visitorID)}
}

// Key is the Redis key holding visitorID's conversation id.
func Key(visitorID string) string {
	if visitorID == "" {
		visitorID = "anonymous"
	}
	return fmt.Sprintf("spapperi:visitor:%s:%s", visitorID, configurator.StorageKey)
}

func (s *IdentityStore) Load(ctx context.Context) (string, bool, error) {
	id, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load conversation id: %w", err)
	}
	return id, id != "", nil
}

func (s *IdentityStore) Save(ctx context.Context, id string) error {
	current, _, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current == id {
		return nil
	}
	if err := s.rdb.Set(ctx, s.key, id, 0).Err(); err != nil {
		return fmt.Errorf("failed to save conversation id: %w", err)
	}
	return nil
}

func (s *IdentityStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation id: %w", err)
	}
	return nil
}
