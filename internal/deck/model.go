// Package deck holds the in-memory card domain: models (card templates),
// notes (field values bound to a model) and decks (ordered note
// collections), plus card id allocation and duplicate detection.
package deck

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Template is one question/answer pair of a model.
type Template struct {
	Name string
	Qfmt string
	Afmt string
}

// Requirement lists the fields a template needs before a card is generated.
// Kind is "all" or "any".
type Requirement struct {
	Template int
	Kind     string
	Fields   []int
}

// Model is an immutable card template definition.
type Model struct {
	id        int64
	name      string
	fields    []string
	templates []Template
	css       string
	req       []Requirement
}

var errInvalidModel = errors.New("invalid model")

// NewModel builds a model. A nil req requires the first field for every
// template.
func NewModel(id int64, name string, fields []string, templates []Template, css string, req []Requirement) (*Model, error) {
	if id <= 0 || name == "" {
		return nil, fmt.Errorf("model %q: id and name required: %w", name, errInvalidModel)
	}
	if len(fields) == 0 || len(templates) == 0 {
		return nil, fmt.Errorf("model %q: needs fields and templates: %w", name, errInvalidModel)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			return nil, fmt.Errorf("model %q: field %q: %w", name, f, errInvalidModel)
		}
		seen[f] = true
	}
	if req == nil {
		for i := range templates {
			req = append(req, Requirement{Template: i, Kind: "all", Fields: []int{0}})
		}
	}
	for _, r := range req {
		if r.Template < 0 || r.Template >= len(templates) || (r.Kind != "all" && r.Kind != "any") {
			return nil, fmt.Errorf("model %q: requirement %+v: %w", name, r, errInvalidModel)
		}
		for _, f := range r.Fields {
			if f < 0 || f >= len(fields) {
				return nil, fmt.Errorf("model %q: requirement field %d: %w", name, f, errInvalidModel)
			}
		}
	}

	reqs := make([]Requirement, len(req))
	for i, r := range req {
		reqs[i] = Requirement{Template: r.Template, Kind: r.Kind, Fields: slices.Clone(r.Fields)}
	}
	return &Model{
		id:        id,
		name:      name,
		fields:    slices.Clone(fields),
		templates: slices.Clone(templates),
		css:       css,
		req:       reqs,
	}, nil
}

// ID returns the Anki model id.
func (m *Model) ID() int64 { return m.id }

// Name returns the model name shown in Anki.
func (m *Model) Name() string { return m.name }

// CSS returns the card stylesheet.
func (m *Model) CSS() string { return m.css }

// FieldCount returns the number of fields a note of this model carries.
func (m *Model) FieldCount() int { return len(m.fields) }

// Fields returns a copy of the field names.
func (m *Model) Fields() []string { return slices.Clone(m.fields) }

// Templates returns a copy of the card templates.
func (m *Model) Templates() []Template { return slices.Clone(m.templates) }

// Requirements returns a copy of the card generation requirements.
func (m *Model) Requirements() []Requirement {
	out := make([]Requirement, len(m.req))
	for i, r := range m.req {
		out[i] = Requirement{Template: r.Template, Kind: r.Kind, Fields: slices.Clone(r.Fields)}
	}
	return out
}

// Note builds a note for this model. An empty guid is replaced with a fresh
// UUIDv7 string.
func (m *Model) Note(fields, tags []string, guid string) (*Note, error) {
	if len(fields) != len(m.fields) {
		return nil, fmt.Errorf("model %q takes %d fields, got %d: %w", m.name, len(m.fields), len(fields), types.ErrFieldCount)
	}
	if guid == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating guid: %w", err)
		}
		guid = id.String()
	}
	return &Note{
		model:  m,
		fields: slices.Clone(fields),
		tags:   slices.Clone(tags),
		guid:   guid,
	}, nil
}
