package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, dir, "kanjiguess", nil)
	require.NoError(t, err)
	assert.Equal(t, "kanjiguess", db.Name())
	assert.Equal(t, types.StateReady, db.State())

	cards, err := db.Store(types.CardsStore)
	require.NoError(t, err)
	require.NoError(t, cards.PutMany(ctx, []any{&types.Card{ID: 1, Note: types.CardNote{Fields: []string{"a", "b"}}}}))
	require.NoError(t, db.Detach())

	_, err = Open(ctx, dir, "../escape", nil)
	assert.ErrorIs(t, err, types.ErrInvalidName)
}

func TestOpenMedia(t *testing.T) {
	db, err := OpenMedia(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	defer db.Detach()

	_, err = db.Store(types.MediaStore)
	assert.NoError(t, err)
	_, err = db.Store(types.CardsStore)
	assert.ErrorIs(t, err, types.ErrStoreNotFound)
}
