package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/internal/paths"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

func attachCards(t *testing.T, dir, namespace string) *Backend {
	t.Helper()
	b := NewCardBackend(dir, namespace, nil)
	require.NoError(t, b.Attach(context.Background()))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackend_AttachDetachStates(t *testing.T) {
	dir := t.TempDir()
	b := NewCardBackend(dir, "kanjiguess", nil)
	assert.Equal(t, types.StateClosed, b.State())

	_, err := b.Store(types.CardsStore)
	assert.ErrorIs(t, err, types.ErrNotReady)

	require.NoError(t, b.Attach(context.Background()))
	assert.Equal(t, types.StateReady, b.State())
	assert.FileExists(t, paths.DeckDatabase(dir, "kanjiguess"))

	assert.ErrorIs(t, b.Attach(context.Background()), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	assert.Equal(t, types.StateClosed, b.State())
	assert.NoError(t, b.Detach(), "second detach is a no-op")

	_, err = b.Store(types.CardsStore)
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestBackend_StoreKinds(t *testing.T) {
	dir := t.TempDir()
	cards := attachCards(t, dir, "deck")

	s, err := cards.Store(types.CardsStore)
	require.NoError(t, err)
	assert.Equal(t, types.CardsStore, s.Kind())

	_, err = cards.Store(types.MediaStore)
	assert.ErrorIs(t, err, types.ErrStoreNotFound)
	_, err = cards.Store("notes")
	assert.ErrorIs(t, err, types.ErrStoreNotFound)

	media := NewMediaBackend(dir, nil)
	require.NoError(t, media.Attach(context.Background()))
	defer media.Detach()

	s, err = media.Store(types.MediaStore)
	require.NoError(t, err)
	assert.Equal(t, types.MediaStore, s.Kind())
	_, err = media.Store(types.CardsStore)
	assert.ErrorIs(t, err, types.ErrStoreNotFound)
}

func TestBackend_StaleStoreAfterDetach(t *testing.T) {
	b := NewCardBackend(t.TempDir(), "deck", nil)
	require.NoError(t, b.Attach(context.Background()))
	s, err := b.Store(types.CardsStore)
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	_, err = s.GetAll(context.Background())
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestBackend_FileLockedWhileAttached(t *testing.T) {
	dir := t.TempDir()
	attachCards(t, dir, "deck")

	other := NewCardBackend(dir, "deck", nil)
	err := other.Attach(context.Background())
	assert.ErrorIs(t, err, types.ErrLocked)
	assert.Equal(t, types.StateClosed, other.State())
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := NewCardBackend(dir, "deck", nil)
	require.NoError(t, b.Attach(ctx))
	s, err := b.Store(types.CardsStore)
	require.NoError(t, err)
	require.NoError(t, s.PutMany(ctx, []any{card(1, "雨", "rain")}))
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(ctx))
	defer b.Detach()
	s, err = b.Store(types.CardsStore)
	require.NoError(t, err)
	got, err := s.Get(ctx, int64(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"雨", "rain"}, got.(*types.Card).Note.Fields)
}

func setUserVersion(t *testing.T, path string, version int, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	require.NoError(t, err)
}

func TestSchema_LegacyCardsDropped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := paths.DeckDatabase(dir, "old")
	require.NoError(t, os.MkdirAll(paths.DecksDir(dir), 0o755))
	setUserVersion(t, path, 4,
		"CREATE TABLE cards (id INTEGER PRIMARY KEY, front TEXT)",
		"INSERT INTO cards (id, front) VALUES (1, 'stale')",
	)

	b := attachCards(t, dir, "old")
	s, err := b.Store(types.CardsStore)
	require.NoError(t, err)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "legacy rows are discarded")

	require.NoError(t, s.PutMany(ctx, []any{card(2, "a", "b")}))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, keys)
}

func TestSchema_NewerVersionRefused(t *testing.T) {
	dir := t.TempDir()
	path := paths.DeckDatabase(dir, "future")
	require.NoError(t, os.MkdirAll(paths.DecksDir(dir), 0o755))
	setUserVersion(t, path, 9)

	b := NewCardBackend(dir, "future", nil)
	err := b.Attach(context.Background())
	assert.ErrorIs(t, err, types.ErrSchemaMismatch)
	assert.Equal(t, types.StateClosed, b.State())

	// The failed attach released the lock.
	other := NewCardBackend(dir, "future", nil)
	assert.ErrorIs(t, other.Attach(context.Background()), types.ErrSchemaMismatch)
}

func TestSchema_CurrentVersionRecorded(t *testing.T) {
	dir := t.TempDir()
	b := attachCards(t, dir, "deck")
	require.NoError(t, b.Detach())

	db, err := sql.Open("sqlite", b.Path())
	require.NoError(t, err)
	defer db.Close()
	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	assert.Equal(t, CardSchemaVersion, v)
}
