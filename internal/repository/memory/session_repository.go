package memory

import (
	"context"

	"spapperi-configurator/pkg/configurator"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps conversation ids in process memory, one per visitor key.
// It lives as long as the process; use it for tests and throwaway sessions.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Ids never expire on their own, only an explicit reset removes them
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// ForVisitor returns the identity store of one visitor.
func (r *SessionRepository) ForVisitor(visitorID string) *IdentityStore {
	key := configurator.StorageKey
	if visitorID != "" {
		key = visitorID + ":" + key
	}
	return &IdentityStore{cache: r.cache, key: key}
}

type IdentityStore struct {
	cache *cache.Cache
	key   string
}

func (s *IdentityStore) Load(_ context.Context) (string, bool, error) {
	if x, found := s.cache.Get(s.key); found {
		id, ok := x.(string)
		return id, ok && id != "", nil
	}
	return "", false, nil
}

func (s *IdentityStore) Save(_ context.Context, id string) error {
	if current, found := s.cache.Get(s.key); found && current == id {
		return nil
	}
	s.cache.Set(s.key, id, cache.NoExpiration)
	return nil
}

func (s *IdentityStore) Clear(_ context.Context) error {
	s.cache.Delete(s.key)
	return nil
}
