package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, path := openTemp(t)
	assert.Empty(t, s.Keys())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is created lazily")
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestSetGetRemove(t *testing.T) {
	s, path := openTemp(t)

	require.NoError(t, s.Set(KeyActiveNamespace, "verbs"))
	v, ok := s.Get(KeyActiveNamespace)
	assert.True(t, ok)
	assert.Equal(t, "verbs", v)

	reopened, err := Open(path)
	require.NoError(t, err)
	v, ok = reopened.Get(KeyActiveNamespace)
	assert.True(t, ok)
	assert.Equal(t, "verbs", v)

	require.NoError(t, s.Remove(KeyActiveNamespace))
	_, ok = s.Get(KeyActiveNamespace)
	assert.False(t, ok)
	require.NoError(t, s.Remove("never-set"))
}

func TestSetMany_AppliesTogether(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Set("stale", "x"))

	dbs, err := JSON([]string{"verbs"})
	require.NoError(t, err)
	label := `{"verbs":{"id":1,"label":"Verbs"}}`
	require.NoError(t, s.SetMany(map[string]*string{
		KeyNamespaces: dbs,
		KeyDeckData:   &label,
		"stale":       nil,
	}))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyDeckData, KeyNamespaces}, reopened.Keys())
}

func TestSetMany_FailureLeavesStateUntouched(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "sub", "settings.json"))
	require.NoError(t, err)
	require.NoError(t, s.Set("a", "1"))

	// Replace the parent directory with a file so the next write fails.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub"), []byte("x"), 0o644))

	err = s.Set("a", "2")
	require.Error(t, err)
	v, _ := s.Get("a")
	assert.Equal(t, "1", v)
}

func TestJSONHelpers(t *testing.T) {
	s, _ := openTemp(t)

	var names []string
	ok, err := s.GetJSON(KeyMedia, &names)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetJSON(KeyMedia, []string{"a.png", "b.ttf"}))
	ok, err = s.GetJSON(KeyMedia, &names)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a.png", "b.ttf"}, names)

	require.NoError(t, s.Set(KeyMedia, "oops"))
	ok, err = s.GetJSON(KeyMedia, &names)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestInputMethodKey(t *testing.T) {
	assert.Equal(t, "noIME_Front", InputMethodKey("Front"))
}
