package deck

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Deck is an ordered collection of notes with a stable id and label.
// Deck does not persist anything; callers write cards themselves.
type Deck struct {
	id    int64
	label string
	notes []*Note
}

// New returns an empty deck.
func New(id int64, label string) *Deck {
	return &Deck{id: id, label: label}
}

// ID returns the Anki deck id, or zero when none is assigned yet.
func (d *Deck) ID() int64 { return d.id }

// Label returns the display label.
func (d *Deck) Label() string { return d.label }

// Len returns the number of notes.
func (d *Deck) Len() int { return len(d.notes) }

// Notes returns a copy of the note list in insertion order.
func (d *Deck) Notes() []*Note { return slices.Clone(d.notes) }

// SetLabel changes the display label.
func (d *Deck) SetLabel(l string) { d.label = l }

// AddNote appends a note.
func (d *Deck) AddNote(n *Note) {
	d.notes = append(d.notes, n)
}

// Find returns the note with the given guid.
func (d *Deck) Find(guid string) (*Note, bool) {
	i := d.index(guid)
	if i < 0 {
		return nil, false
	}
	return d.notes[i], true
}

func (d *Deck) index(guid string) int {
	return slices.IndexFunc(d.notes, func(n *Note) bool { return n.guid == guid })
}

// Remove takes the note with the given guid out of the deck.
func (d *Deck) Remove(guid string) (*Note, error) {
	i := d.index(guid)
	if i < 0 {
		return nil, fmt.Errorf("note %s: %w", guid, types.ErrNoteMissing)
	}
	n := d.notes[i]
	d.notes = slices.Delete(d.notes, i, i+1)
	return n, nil
}
