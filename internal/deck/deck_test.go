package deck

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

func mustNote(t *testing.T, m *Model, guid string, fields ...string) *Note {
	t.Helper()
	n, err := m.Note(fields, nil, guid)
	require.NoError(t, err)
	return n
}

func TestModelNote_FieldCount(t *testing.T) {
	m := Builtin().Lookup(0)

	_, err := m.Note([]string{"only one"}, nil, "")
	assert.ErrorIs(t, err, types.ErrFieldCount)
	_, err = m.Note([]string{"a", "b", "c"}, nil, "")
	assert.ErrorIs(t, err, types.ErrFieldCount)

	n, err := m.Note([]string{"雨", "rain"}, []string{"n5"}, "")
	require.NoError(t, err)
	_, err = uuid.Parse(n.GUID())
	assert.NoError(t, err, "default guid is a uuid")
	_, ok := n.CardID()
	assert.False(t, ok, "transient notes carry no card id")
	assert.Equal(t, []string{"n5"}, n.Tags())
}

func TestModel_Immutable(t *testing.T) {
	fields := []string{"Front", "Back"}
	m, err := NewModel(1, "m", fields, []Template{{Name: "Card 1", Qfmt: "{{Front}}", Afmt: "{{Back}}"}}, "", nil)
	require.NoError(t, err)

	fields[0] = "changed"
	m.Fields()[1] = "changed"
	assert.Equal(t, []string{"Front", "Back"}, m.Fields())
	assert.Equal(t, []Requirement{{Template: 0, Kind: "all", Fields: []int{0}}}, m.Requirements())

	src := []string{"a", "b"}
	n, err := m.Note(src, nil, "1")
	require.NoError(t, err)
	src[0] = "z"
	assert.Equal(t, "a", n.Field(0))
}

func TestNewModel_Invalid(t *testing.T) {
	tmpl := []Template{{Name: "Card 1"}}
	tests := []struct {
		name   string
		id     int64
		fields []string
		tmpls  []Template
		req    []Requirement
	}{
		{"zero id", 0, []string{"F"}, tmpl, nil},
		{"no fields", 1, nil, tmpl, nil},
		{"no templates", 1, []string{"F"}, nil, nil},
		{"duplicate field", 1, []string{"F", "F"}, tmpl, nil},
		{"bad requirement field", 1, []string{"F"}, tmpl, []Requirement{{Template: 0, Kind: "all", Fields: []int{3}}}},
		{"bad requirement kind", 1, []string{"F"}, tmpl, []Requirement{{Template: 0, Kind: "some"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(tt.id, "m", tt.fields, tt.tmpls, "", tt.req)
			assert.Error(t, err)
		})
	}
}

func TestCatalog(t *testing.T) {
	cat := Builtin()
	require.Equal(t, 2, cat.Len())

	kg := cat.Lookup(0)
	assert.Equal(t, "Kanji Guess", kg.Name())
	assert.Equal(t, KanjiGuessID, kg.ID())
	assert.Contains(t, kg.Templates()[0].Afmt, StrokeOrderFont)

	sl := cat.Lookup(1)
	assert.Equal(t, "Kanji Guess, srokeless", sl.Name())
	assert.Equal(t, KanjiStrokelessID, sl.ID())

	assert.Same(t, kg, cat.Lookup(9), "unknown type falls back to model 0")
	assert.Same(t, kg, cat.Lookup(-1))
	_, ok := cat.Get(9)
	assert.False(t, ok)

	assert.Equal(t, 1, cat.Type(sl))
	assert.Equal(t, 0, cat.Type(kg))
	other, err := NewModel(99, "other", []string{"F"}, []Template{{Name: "c"}}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Type(other))
}

func TestCardRoundTrip(t *testing.T) {
	cat := Builtin()
	c := &types.Card{ID: 1736639633200, Type: 1, Note: types.CardNote{Fields: []string{"雨", "rain"}}}

	n, err := FromCard(cat, c)
	require.NoError(t, err)
	assert.Equal(t, "1736639633200", n.GUID())
	assert.Same(t, cat.Lookup(1), n.Model())

	back, err := n.Card(cat)
	require.NoError(t, err)
	assert.Equal(t, c, back)

	_, err = FromCard(cat, &types.Card{ID: 1, Note: types.CardNote{Fields: []string{"x"}}})
	assert.ErrorIs(t, err, types.ErrFieldCount)

	transient := mustNote(t, cat.Lookup(0), "", "a", "b")
	_, err = transient.Card(cat)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestDeck(t *testing.T) {
	m := Builtin().Lookup(0)
	d := New(7, "Deck")
	d.AddNote(mustNote(t, m, "1", "a", "b"))
	d.AddNote(mustNote(t, m, "2", "c", "d"))
	d.AddNote(mustNote(t, m, "3", "e", "f"))
	assert.Equal(t, 3, d.Len())

	n, ok := d.Find("2")
	require.True(t, ok)
	assert.Equal(t, "c", n.Field(0))

	removed, err := d.Remove("2")
	require.NoError(t, err)
	assert.Same(t, n, removed)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "3", d.Notes()[1].GUID(), "order kept")

	_, err = d.Remove("2")
	assert.ErrorIs(t, err, types.ErrNoteMissing)

	d.SetLabel("Renamed")
	assert.Equal(t, "Renamed", d.Label())
	assert.Equal(t, int64(7), d.ID())
}

func TestIDAllocator(t *testing.T) {
	clock := time.UnixMilli(1000)
	a := NewIDAllocator(1000, 1001)
	a.now = func() time.Time { return clock }

	assert.Equal(t, int64(1002), a.Next(), "reserved ids skipped")
	assert.Equal(t, int64(1003), a.Next(), "same millisecond still increases")

	clock = time.UnixMilli(5000)
	a.Reserve(5000)
	assert.Equal(t, int64(5001), a.Next())

	clock = time.UnixMilli(10)
	assert.Equal(t, int64(5002), a.Next(), "a clock step back never reissues")
}

func TestFindDuplicates(t *testing.T) {
	cat := Builtin()
	m := cat.Lookup(0)

	t.Run("shared field is possible", func(t *testing.T) {
		got := FindDuplicates([]*Note{
			mustNote(t, m, "1", "雨", "rain"),
			mustNote(t, m, "2", "雨", "shower"),
		})
		assert.Equal(t, Duplicate{GUID: "1", Kind: PossibleDuplicate, Peer: "2"}, got["1"])
		assert.Equal(t, Duplicate{GUID: "2", Kind: PossibleDuplicate, Peer: "1"}, got["2"])
	})

	t.Run("identical fields are exact", func(t *testing.T) {
		got := FindDuplicates([]*Note{
			mustNote(t, m, "1", "雨", "rain"),
			mustNote(t, m, "2", "雨", "rain"),
			mustNote(t, m, "3", "火", "fire"),
		})
		assert.Equal(t, ExactDuplicate, got["1"].Kind)
		assert.Equal(t, ExactDuplicate, got["2"].Kind)
		assert.NotContains(t, got, "3")
	})

	t.Run("exact wins over possible", func(t *testing.T) {
		got := FindDuplicates([]*Note{
			mustNote(t, m, "1", "雨", "rain"),
			mustNote(t, m, "2", "雨", "shower"),
			mustNote(t, m, "3", "雨", "rain"),
		})
		assert.Equal(t, Duplicate{GUID: "1", Kind: ExactDuplicate, Peer: "2"}, got["1"])
		assert.Equal(t, PossibleDuplicate, got["2"].Kind)
	})

	t.Run("other models ignored", func(t *testing.T) {
		got := FindDuplicates([]*Note{
			mustNote(t, m, "1", "雨", "rain"),
			mustNote(t, cat.Lookup(1), "2", "雨", "rain"),
		})
		assert.Empty(t, got)
	})

	t.Run("order independent per pair", func(t *testing.T) {
		a := mustNote(t, m, "1", "雨", "rain")
		b := mustNote(t, m, "2", "雨", "shower")
		c := mustNote(t, m, "3", "x", "rain")
		one := FindDuplicates([]*Note{a, b, c})
		two := FindDuplicates([]*Note{c, b, a})
		for guid := range one {
			assert.Equal(t, one[guid].Kind, two[guid].Kind, guid)
		}
		assert.Len(t, two, len(one))
	})
}

func TestCleanField(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  error
	}{
		{"雨", "雨", nil},
		{"a￥b", "a/ b", nil},
		{"<b>bold</b>", "&lt;b&gt;bold&lt;/b&gt;", nil},
		{"e\u0301", "\u00e9", nil},
		{"  ", "", types.ErrEmptyField},
		{"", "", types.ErrEmptyField},
	}
	for _, tt := range tests {
		got, err := CleanField(tt.in)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "%q", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := CleanFields([]string{"ok", " "})
	assert.ErrorIs(t, err, types.ErrEmptyField)
}
