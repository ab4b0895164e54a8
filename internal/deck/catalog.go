package deck

// Built-in model ids.
const (
	KanjiGuessID      int64 = 1736639633108
	KanjiStrokelessID int64 = 1736639633130
)

// StrokeOrderFont is the media file referenced by the Kanji Guess answer
// template.
const StrokeOrderFont = "_kanjiStrokeOrder.ttf"

const kanjiGuessAnswer = `<style>
@font-face {
  font-family: KanjiStrokeOrders;
  src: url("` + StrokeOrderFont + `");
}
</style>{{FrontSide}}

<hr id=answer>

<span style="font-size: 40vw; font-family: KanjiStrokeOrders">
{{Back}}
</span>`

const strokelessAnswer = `{{FrontSide}}
<hr id=answer>

{{Back}}`

const defaultCSS = `.card {
  font-family: arial;
  font-size: 20px;
  text-align: center;
  color: black;
  background-color: white;
}`

var frontRequired = []Requirement{{Template: 0, Kind: "all", Fields: []int{0}}}

// Catalog is a closed set of models keyed by small integers. The key is the
// card record's type.
type Catalog struct {
	models []*Model
}

// NewCatalog returns a catalog; the model at index 0 is the fallback.
func NewCatalog(models ...*Model) *Catalog {
	return &Catalog{models: models}
}

// Builtin returns the catalog of the two built-in models: 0 = Kanji Guess,
// 1 = Kanji Guess, srokeless.
func Builtin() *Catalog {
	return NewCatalog(
		mustModel(NewModel(KanjiGuessID, "Kanji Guess", []string{"Front", "Back"},
			[]Template{{Name: "Card 1", Qfmt: "{{Front}}", Afmt: kanjiGuessAnswer}}, defaultCSS, frontRequired)),
		mustModel(NewModel(KanjiStrokelessID, "Kanji Guess, srokeless", []string{"Front", "Back"},
			[]Template{{Name: "Card 1", Qfmt: "{{Front}}", Afmt: strokelessAnswer}}, defaultCSS, frontRequired)),
	)
}

func mustModel(m *Model, err error) *Model {
	if err != nil {
		panic(err)
	}
	return m
}

// Len returns the number of models.
func (c *Catalog) Len() int { return len(c.models) }

// Get returns the model of type t.
func (c *Catalog) Get(t int) (*Model, bool) {
	if t < 0 || t >= len(c.models) {
		return nil, false
	}
	return c.models[t], true
}

// Lookup returns the model of type t, or the default model for an unknown
// type.
func (c *Catalog) Lookup(t int) *Model {
	if m, ok := c.Get(t); ok {
		return m
	}
	return c.models[0]
}

// Type returns the type key of m, matched by model id. Unknown models map
// to 0.
func (c *Catalog) Type(m *Model) int {
	for i, x := range c.models {
		if x == m || (m != nil && x.id == m.id) {
			return i
		}
	}
	return 0
}

// Models returns the models in type order.
func (c *Catalog) Models() []*Model {
	out := make([]*Model, len(c.models))
	copy(out, c.models)
	return out
}
