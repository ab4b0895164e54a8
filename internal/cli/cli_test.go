package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/internal/registry"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// env is one isolated workspace for CLI runs.
type env struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	return &env{t: t, configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// run executes ganki with args and optional stdin and returns stdout and stderr.
func (e *env) run(stdin string, argv ...string) (string, string, error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	all := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, argv...)
	err := run(context.Background(), all, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (e *env) ok(argv ...string) string {
	e.t.Helper()
	out, _, err := e.run("", argv...)
	require.NoError(e.t, err, "ganki %s", strings.Join(argv, " "))
	return out
}

func (e *env) json(v any, argv ...string) {
	e.t.Helper()
	out := e.ok(append([]string{"--json"}, argv...)...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), out)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.ok("version")
	assert.Contains(t, out, "ganki v")
	assert.Contains(t, out, modulePath)
	assert.NoDirExists(t, e.configDir, "version needs no workspace")
}

func TestInit_WritesDefaultConfig(t *testing.T) {
	e := newEnv(t)
	out := e.ok("init")
	assert.Contains(t, out, registry.DefaultNamespace)

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_package: multideck")
	assert.FileExists(t, filepath.Join(e.dataDir, "decks", registry.DefaultNamespace+".db"))

	// A second init keeps the existing file.
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("log_level: warn\n"), 0o644))
	e.ok("init")
	data, err = os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "log_level: warn\n", string(data))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("data_dir: "+filepath.Join(dir, "fromfile")+"\ndefault_package: kanji\n"), 0o644))

	t.Run("file values", func(t *testing.T) {
		_, cfg, err := loadConfig(rootFlags{configDir: dir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "fromfile"), cfg.DataDir)
		assert.Equal(t, "kanji", cfg.DefaultPackage)
		assert.Equal(t, types.DefaultLogLevel, cfg.LogLevel)
	})

	t.Run("env and flags override", func(t *testing.T) {
		t.Setenv("GANKI_DEFAULT_PACKAGE", "fromenv")
		t.Setenv("GANKI_LOG_LEVEL", "warn")
		t.Setenv("GANKI_DATA_DIR", filepath.Join(dir, "fromenv"))
		_, cfg, err := loadConfig(rootFlags{configDir: dir, logLevel: "debug"})
		require.NoError(t, err)
		assert.Equal(t, "fromenv", cfg.DefaultPackage)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, filepath.Join(dir, "fromfile"), cfg.DataDir, "config data_dir ranks above the env")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, _, err := loadConfig(rootFlags{configDir: dir, logLevel: "loud"})
		assert.ErrorIs(t, err, types.ErrInvalidConfig)
	})
}

func TestDeckCommands(t *testing.T) {
	e := newEnv(t)
	assert.Contains(t, e.ok("deck", "add", "JLPT", "N5"), "JLPT_N5")
	e.ok("deck", "rename", "Level", "five")

	var decks []deckRow
	e.json(&decks, "deck", "list")
	require.Len(t, decks, 2)
	assert.Equal(t, registry.DefaultNamespace, decks[0].Namespace)
	assert.False(t, decks[0].Active)
	assert.Equal(t, deckRow{Namespace: "JLPT_N5", ID: decks[1].ID, Label: "Level five", Active: true}, decks[1])

	e.ok("deck", "use", registry.DefaultNamespace)
	e.json(&decks, "deck", "list")
	assert.True(t, decks[0].Active)

	_, _, err := e.run("", "deck", "use", "ghost")
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)
	assert.Equal(t, exitUserError, exitCode(err))

	out := e.ok("deck", "list")
	assert.Contains(t, out, "Level five")
}

func TestNoteCommands(t *testing.T) {
	e := newEnv(t)
	var added noteRow
	e.json(&added, "note", "add", "雨", "rain")
	assert.Equal(t, []string{"雨", "rain"}, added.Fields)
	assert.Equal(t, "Kanji Guess", added.Model)
	e.ok("note", "add", "雨", "shower")
	e.ok("note", "add", "--model", "1", "雨", "storm")

	var notes []noteRow
	e.json(&notes, "note", "list")
	require.Len(t, notes, 3)
	assert.Equal(t, "possible", notes[0].Duplicate)
	assert.Equal(t, notes[1].GUID, notes[0].Peer)
	assert.Equal(t, "Kanji Guess, srokeless", notes[2].Model)
	assert.Empty(t, notes[2].Duplicate, "notes of different models are not compared")

	e.json(&notes, "note", "list", "--duplicates")
	assert.Len(t, notes, 2)

	_, _, err := e.run("", "note", "add", "only")
	assert.ErrorIs(t, err, types.ErrFieldCount)
	_, _, err = e.run("", "note", "remove", "404")
	assert.ErrorIs(t, err, types.ErrNoteMissing)

	e.ok("note", "remove", added.GUID)
	e.json(&notes, "note", "list")
	require.Len(t, notes, 2)
	assert.Equal(t, []string{"雨", "shower"}, notes[0].Fields)
}

func TestParseAndParsers(t *testing.T) {
	e := newEnv(t)

	var parsed []noteRow
	out, _, err := e.run("雨(あめ):rain\n火(ひ):fire\n", "--json", "parse")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, []string{"あめ - rain", "雨"}, parsed[0].Fields)

	src := "pattern: '(?P<w>\\w+)=(?P<m>\\w+)'\nfields: [$m, $w]\n"
	e.ok("parser", "set", "pairs", src)
	e.ok("parser", "use", "pairs")

	var list struct {
		Current string   `json:"current"`
		Parsers []string `json:"parsers"`
	}
	e.json(&list, "parser", "list")
	assert.Equal(t, "pairs", list.Current)
	assert.Contains(t, list.Parsers, "pairs")

	var tuples [][]string
	e.json(&tuples, "parser", "test", "pairs", "cat=neko")
	assert.Equal(t, [][]string{{"neko", "cat"}}, tuples)

	var notes []noteRow
	e.json(&notes, "note", "list")
	assert.Len(t, notes, 2, "parser test adds nothing")

	e.json(&parsed, "parse", "dog=inu")
	assert.Equal(t, []string{"inu", "dog"}, parsed[0].Fields)

	_, _, err = e.run("", "parser", "set", "broken", "pattern: '('\nfields: [$a]\n")
	assert.Equal(t, exitUserError, exitCode(err))

	e.ok("parser", "remove", "pairs")
	_, _, err = e.run("", "parser", "show", "pairs")
	assert.ErrorIs(t, err, types.ErrParserNotFound)
}

func TestMediaCommands(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(t.TempDir(), "stroke.ttf")
	require.NoError(t, os.WriteFile(file, []byte("font bytes"), 0o644))

	var m mediaRow
	e.json(&m, "media", "add", "--package", "--desc", "font", file)
	assert.Equal(t, mediaRow{Name: "stroke.ttf", Size: 10, Type: m.Type, Desc: "font", Loaded: true, Package: true}, m)

	e.json(&m, "media", "add")
	assert.Equal(t, "New media (2)", m.Name)
	assert.False(t, m.Loaded)

	e.json(&m, "media", "update", "New media (2)", "--name", "icon.png", "--desc", "icon")
	assert.Equal(t, "icon.png", m.Name)

	var all []mediaRow
	e.json(&all, "media", "list")
	assert.Len(t, all, 2)

	out := e.ok("media", "show", "stroke.ttf")
	assert.Contains(t, out, "10 B")

	e.ok("media", "remove", "icon.png")
	_, _, err := e.run("", "media", "show", "icon.png")
	assert.ErrorIs(t, err, types.ErrMediaNotFound)
}

func TestExportAndImport(t *testing.T) {
	e := newEnv(t)
	e.ok("note", "add", "雨", "rain")
	e.ok("deck", "add", "Kana")
	e.ok("note", "add", "あ", "a")

	dir := t.TempDir()
	docPath := filepath.Join(dir, "backup.ganki")
	_, stderr, err := e.run("", "export", "ganki", "--out", docPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Gathering data...")
	assert.FileExists(t, docPath)

	pkgPath := filepath.Join(dir, "kana.apkg")
	_, stderr, err = e.run("", "export", "apkg", "--deck", "Kana", "--out", pkgPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Adding the deck Kana...")
	assert.NotContains(t, stderr, registry.DefaultLabel)
	assert.FileExists(t, pkgPath)

	_, _, err = e.run("", "export", "apkg", "--deck", "nothing", "--out", pkgPath)
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)

	other := newEnv(t)
	var res struct {
		Imported []string `json:"imported"`
	}
	other.json(&res, "import", docPath)
	assert.Equal(t, []string{"Kana", registry.DefaultNamespace}, res.Imported)

	var decks []deckRow
	other.json(&decks, "deck", "list")
	assert.Len(t, decks, 2)

	other.ok("deck", "use", "Kana")
	var notes []noteRow
	other.json(&notes, "note", "list")
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"あ", "a"}, notes[0].Fields)
}

func TestUsageErrors(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run("", "deck", "use")
	assert.Equal(t, exitUserError, exitCode(err))
	_, _, err = e.run("", "note", "list", "--bogus")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"usage", usageError{errors.New("bad flag")}, exitUserError},
		{"wrapped sentinel", fmt.Errorf("deck: %w", types.ErrNamespaceNotFound), exitUserError},
		{"locked", types.ErrLocked, exitUserError},
		{"system", errors.New("disk on fire"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
