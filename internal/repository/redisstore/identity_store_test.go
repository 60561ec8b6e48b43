package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCommander answers Get/Set/Del from a map, the way a Redis server would.
type mapCommander struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
	err    error
}

func newMapCommander() *mapCommander {
	return &mapCommander{values: map[string]string{}}
}

func (m *mapCommander) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mapCommander) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.values[key] = value.(string)
	m.sets++
	cmd.SetVal("OK")
	return cmd
}

func (m *mapCommander) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "del")
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestKey(t *testing.T) {
	assert.Equal(t, "spapperi:visitor:alice:spapperi_conversation_id", Key("alice"))
	assert.Equal(t, "spapperi:visitor:anonymous:spapperi_conversation_id", Key(""))
}

func TestIdentityStore(t *testing.T) {
	ctx := context.Background()
	rdb := newMapCommander()
	store := newIdentityStore(rdb, "alice")

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "conv-1"))
	require.NoError(t, store.Save(ctx, "conv-1"))
	assert.Equal(t, 1, rdb.sets, "an unchanged id is not written twice")
	assert.Equal(t, "conv-1", rdb.values[Key("alice")])

	id, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "conv-1", id)

	require.NoError(t, store.Clear(ctx))
	_, ok, _ = store.Load(ctx)
	assert.False(t, ok)
}

func TestIdentityStore_Errors(t *testing.T) {
	ctx := context.Background()
	rdb := newMapCommander()
	rdb.err = errors.New("connection refused")
	store := newIdentityStore(rdb, "alice")

	_, _, err := store.Load(ctx)
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, store.Save(ctx, "conv-1"))
	assert.Error(t, store.Clear(ctx))
}
