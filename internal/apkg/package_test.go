package apkg

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

func note(t *testing.T, m *deck.Model, guid string, fields ...string) *deck.Note {
	t.Helper()
	n, err := m.Note(fields, nil, guid)
	require.NoError(t, err)
	return n
}

// unpack reads a written package back: its zip entries and an open handle
// on the extracted collection.
func unpack(t *testing.T, data []byte) (map[string][]byte, *sql.DB) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = b
	}
	require.Contains(t, files, collectionFile)

	path := filepath.Join(t.TempDir(), collectionFile)
	require.NoError(t, os.WriteFile(path, files[collectionFile], 0o644))
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return files, db
}

func TestWrite_NotesCardsAndMedia(t *testing.T) {
	cat := deck.Builtin()
	kanji, _ := cat.Get(0)
	strokeless, _ := cat.Get(1)

	d := deck.New(1736639633110, "Kanji")
	d.AddNote(note(t, kanji, "1736639700000", "<b>あめ</b> - rain", "雨"))
	d.AddNote(note(t, strokeless, "", "ひ - fire", "火"))

	p := New(cat, nil)
	p.AddDeck(d)
	require.NoError(t, p.AddMedia([]byte("font"), deck.StrokeOrderFont))
	require.NoError(t, p.AddMedia([]byte("png"), "rain.png"))
	require.NoError(t, p.AddMedia([]byte("png2"), "rain.png"))
	assert.ErrorIs(t, p.AddMedia(nil, ""), types.ErrInvalidName)

	var buf bytes.Buffer
	require.NoError(t, p.Write(context.Background(), &buf))
	files, db := unpack(t, buf.Bytes())

	var index map[string]string
	require.NoError(t, json.Unmarshal(files[mediaMapFile], &index))
	assert.Equal(t, map[string]string{"0": deck.StrokeOrderFont, "1": "rain.png"}, index)
	assert.Equal(t, []byte("font"), files["0"])
	assert.Equal(t, []byte("png2"), files["1"], "same name replaces")

	var ver int
	var models, decks string
	require.NoError(t, db.QueryRow(`SELECT ver, models, decks FROM col`).Scan(&ver, &models, &decks))
	assert.Equal(t, collectionVersion, ver)

	var decoded map[string]colDeck
	require.NoError(t, json.Unmarshal([]byte(decks), &decoded))
	assert.Equal(t, "Kanji", decoded["1736639633110"].Name)
	assert.Contains(t, decoded, "1")

	var modelsDecoded map[string]colModel
	require.NoError(t, json.Unmarshal([]byte(models), &modelsDecoded))
	assert.Len(t, modelsDecoded, 2)
	assert.Equal(t, "Kanji Guess", modelsDecoded["1736639633108"].Name)
	assert.Equal(t, int64(1736639633110), modelsDecoded["1736639633108"].Did)

	rows, err := db.Query(`SELECT id, guid, mid, flds, sfld, csum FROM notes ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	type noteRow struct {
		id         int64
		guid, flds string
		mid        int64
		sfld       string
		csum       int64
	}
	var got []noteRow
	for rows.Next() {
		var r noteRow
		require.NoError(t, rows.Scan(&r.id, &r.guid, &r.mid, &r.flds, &r.sfld, &r.csum))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, int64(1736639700000), got[0].id, "persisted card id is the note id")
	assert.Equal(t, "1736639700000", got[0].guid)
	assert.Equal(t, deck.KanjiGuessID, got[0].mid)
	assert.Equal(t, "<b>あめ</b> - rain\x1f雨", got[0].flds)
	assert.Equal(t, "あめ - rain", got[0].sfld)
	assert.Equal(t, checksum("あめ - rain"), got[0].csum)
	assert.Equal(t, deck.KanjiStrokelessID, got[1].mid)

	var cards, did int64
	require.NoError(t, db.QueryRow(`SELECT count(*), max(did) FROM cards`).Scan(&cards, &did))
	assert.Equal(t, int64(2), cards, "one card per satisfied template")
	assert.Equal(t, int64(1736639633110), did)
}

func TestWrite_DeckWithoutID(t *testing.T) {
	cat := deck.Builtin()
	m, _ := cat.Get(0)
	d := deck.New(0, "Fresh")
	d.AddNote(note(t, m, "", "a", "b"))

	p := New(cat, nil)
	p.AddDeck(d)
	var buf bytes.Buffer
	require.NoError(t, p.Write(context.Background(), &buf))
	_, db := unpack(t, buf.Bytes())

	var did int64
	require.NoError(t, db.QueryRow(`SELECT did FROM cards`).Scan(&did))
	assert.Greater(t, did, int64(1), "an id is allocated")
}

func TestWrite_SharedIDsAcrossDecks(t *testing.T) {
	cat := deck.Builtin()
	m, _ := cat.Get(0)
	first := deck.New(1736639633110, "Original")
	first.AddNote(note(t, m, "1736639633200", "a", "b"))
	second := deck.New(1736639633110, "Copy")
	second.AddNote(note(t, m, "1736639633200", "a", "b"))

	p := New(cat, nil)
	p.AddDeck(first)
	p.AddDeck(second)
	var buf bytes.Buffer
	require.NoError(t, p.Write(context.Background(), &buf))
	_, db := unpack(t, buf.Bytes())

	rows, err := db.Query(`SELECT id, guid FROM notes ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	ids := map[int64]bool{}
	guids := map[string]bool{}
	for rows.Next() {
		var id int64
		var guid string
		require.NoError(t, rows.Scan(&id, &guid))
		ids[id], guids[guid] = true, true
	}
	require.NoError(t, rows.Err())
	assert.Len(t, ids, 2, "note ids are unique")
	assert.Len(t, guids, 2, "guids are unique")
	assert.True(t, ids[1736639633200], "the first note keeps its card id")
	assert.True(t, guids["1736639633200"])

	var decks string
	require.NoError(t, db.QueryRow(`SELECT decks FROM col`).Scan(&decks))
	var decoded map[string]colDeck
	require.NoError(t, json.Unmarshal([]byte(decks), &decoded))
	assert.Len(t, decoded, 3, "default plus one entry per deck")

	var dids int
	require.NoError(t, db.QueryRow(`SELECT count(DISTINCT did) FROM cards`).Scan(&dids))
	assert.Equal(t, 2, dids)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(deck.Builtin(), nil).Write(context.Background(), &buf))
	files, db := unpack(t, buf.Bytes())
	assert.Equal(t, "{}", string(files[mediaMapFile]))

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM notes`).Scan(&n))
	assert.Zero(t, n)
}

func TestWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.apkg")
	p := New(deck.Builtin(), nil)
	require.NoError(t, p.WriteToFile(context.Background(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	files, _ := unpack(t, data)
	assert.Contains(t, files, mediaMapFile)
}

func TestWrite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.Error(t, New(deck.Builtin(), nil).Write(ctx, &buf))
}

func TestGeneratedCards(t *testing.T) {
	m, err := deck.NewModel(7, "Two way", []string{"A", "B"},
		[]deck.Template{{Name: "1", Qfmt: "{{A}}"}, {Name: "2", Qfmt: "{{B}}"}}, "",
		[]deck.Requirement{
			{Template: 0, Kind: "all", Fields: []int{0, 1}},
			{Template: 1, Kind: "any", Fields: []int{1}},
		})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, generatedCards(m, []string{"x", "y"}))
	assert.Equal(t, []int{1}, generatedCards(m, []string{" ", "y"}))
	assert.Empty(t, generatedCards(m, []string{"x", ""}))
}
