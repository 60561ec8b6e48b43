package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityStore(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	alice := repo.ForVisitor("alice")
	bob := repo.ForVisitor("bob")

	_, ok, err := alice.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, alice.Save(ctx, "conv-a"))
	require.NoError(t, alice.Save(ctx, "conv-a"))

	id, ok, err := alice.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "conv-a", id)

	_, ok, _ = bob.Load(ctx)
	assert.False(t, ok, "visitors do not share ids")

	again, ok, _ := repo.ForVisitor("alice").Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, "conv-a", again)

	require.NoError(t, alice.Clear(ctx))
	_, ok, _ = alice.Load(ctx)
	assert.False(t, ok)
}
