package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

func TestConnector_OneNamespaceAtATime(t *testing.T) {
	ctx := context.Background()
	c := NewConnector(t.TempDir(), nil)

	_, ok := c.Active()
	assert.False(t, ok)

	a, err := c.Open(ctx, "kanjiguess")
	require.NoError(t, err)
	again, err := c.Open(ctx, "kanjiguess")
	require.NoError(t, err)
	assert.Same(t, a, again, "open is idempotent per name")

	_, err = c.Open(ctx, "other")
	assert.ErrorIs(t, err, types.ErrConnectionBusy)

	name, ok := c.Active()
	assert.True(t, ok)
	assert.Equal(t, "kanjiguess", name)

	require.NoError(t, a.Detach())
	_, ok = c.Active()
	assert.False(t, ok, "detach releases the connector")

	b, err := c.Open(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, types.StateReady, b.State())
	require.NoError(t, b.Detach())
}

func TestConnector_InvalidNamespace(t *testing.T) {
	c := NewConnector(t.TempDir(), nil)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, MediaName} {
		_, err := c.Open(context.Background(), name)
		assert.ErrorIs(t, err, types.ErrInvalidName, "%q", name)
	}
}

func TestConnector_WithDetachesAfterRun(t *testing.T) {
	ctx := context.Background()
	c := NewConnector(t.TempDir(), nil)

	err := c.With(ctx, "deck", func(s types.Store) error {
		name, ok := c.Active()
		assert.True(t, ok)
		assert.Equal(t, "deck", name)
		return s.PutMany(ctx, []any{card(1, "a", "b")})
	})
	require.NoError(t, err)
	_, ok := c.Active()
	assert.False(t, ok)

	boom := errors.New("boom")
	err = c.With(ctx, "deck", func(s types.Store) error {
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok = c.Active()
	assert.False(t, ok, "closed even when fn fails")
}

func TestConnector_WithRefusesWhileOpen(t *testing.T) {
	ctx := context.Background()
	c := NewConnector(t.TempDir(), nil)
	b, err := c.Open(ctx, "deck")
	require.NoError(t, err)
	defer b.Detach()

	err = c.With(ctx, "deck", func(types.Store) error { return nil })
	assert.ErrorIs(t, err, types.ErrConnectionBusy)
	assert.Equal(t, types.StateReady, b.State(), "the open backend is untouched")
}

func TestConnector_WithMedia(t *testing.T) {
	ctx := context.Background()
	c := NewConnector(t.TempDir(), nil)

	require.NoError(t, c.WithMedia(ctx, func(s types.Store) error {
		return s.PutMany(ctx, []any{&types.Media{Name: "a.png", Package: true}})
	}))
	require.NoError(t, c.WithMedia(ctx, func(s types.Store) error {
		keys, err := s.Keys(ctx)
		assert.Equal(t, []any{"a.png"}, keys)
		return err
	}))
}
