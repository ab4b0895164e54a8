package deck

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Note is a model's field values plus tags and a stable guid. The guid is
// the card id in decimal once the note is persisted.
type Note struct {
	model  *Model
	fields []string
	tags   []string
	guid   string
}

// Model returns the model the note was built from.
func (n *Note) Model() *Model { return n.model }

// GUID returns the stable note identifier.
func (n *Note) GUID() string { return n.guid }

// Fields returns a copy of the field values.
func (n *Note) Fields() []string { return slices.Clone(n.fields) }

// Tags returns a copy of the tags.
func (n *Note) Tags() []string { return slices.Clone(n.tags) }

// Field returns the i-th field value. It panics when i is out of range.
func (n *Note) Field(i int) string { return n.fields[i] }

// CardID returns the persisted card id encoded in the guid.
func (n *Note) CardID() (int64, bool) {
	id, err := strconv.ParseInt(n.guid, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Card returns the persisted form of the note. The note must carry a card id.
func (n *Note) Card(cat *Catalog) (*types.Card, error) {
	id, ok := n.CardID()
	if !ok {
		return nil, fmt.Errorf("note %s has no card id: %w", n.guid, types.ErrInvalidData)
	}
	return &types.Card{
		ID:   id,
		Type: cat.Type(n.model),
		Note: types.CardNote{Fields: n.Fields()},
	}, nil
}

// FromCard rebuilds a note from a card record. An unknown type uses the
// catalog's default model.
func FromCard(cat *Catalog, c *types.Card) (*Note, error) {
	m := cat.Lookup(c.Type)
	n, err := m.Note(c.Note.Fields, nil, strconv.FormatInt(c.ID, 10))
	if err != nil {
		return nil, fmt.Errorf("card %d: %w", c.ID, err)
	}
	return n, nil
}
