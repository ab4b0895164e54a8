package session

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// AddNote cleans typed field values and adds them as one note with the
// current model.
func (s *Session) AddNote(ctx context.Context, fields []string) (*deck.Note, error) {
	cleaned, err := deck.CleanFields(fields)
	if err != nil {
		return nil, err
	}
	notes, err := s.AddNotes(ctx, [][]string{cleaned})
	if err != nil {
		return nil, err
	}
	return notes[0], nil
}

// AddNotes persists one card per tuple in a single batch and then appends
// the notes to the deck. Nothing is added when any tuple is rejected.
func (s *Session) AddNotes(ctx context.Context, tuples [][]string) ([]*deck.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.addNotes(ctx, s.cat.Lookup(s.decks.Model()), tuples)
}

func (s *Session) addNotes(ctx context.Context, m *deck.Model, tuples [][]string) ([]*deck.Note, error) {
	notes, records, err := s.newCards(m, tuples)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutMany(ctx, records); err != nil {
		return nil, fmt.Errorf("saving notes: %w", err)
	}
	for _, n := range notes {
		s.deck.AddNote(n)
	}
	s.log.Debugw("notes added", "namespace", s.namespace, "count", len(notes))
	return notes, nil
}

// newCards builds notes and their card records with fresh ids.
func (s *Session) newCards(m *deck.Model, tuples [][]string) ([]*deck.Note, []any, error) {
	notes := make([]*deck.Note, 0, len(tuples))
	records := make([]any, 0, len(tuples))
	for _, fields := range tuples {
		if len(fields) != m.FieldCount() {
			return nil, nil, fmt.Errorf("model %q takes %d fields, got %d: %w", m.Name(), m.FieldCount(), len(fields), types.ErrFieldCount)
		}
		n, err := m.Note(fields, nil, strconv.FormatInt(s.ids.Next(), 10))
		if err != nil {
			return nil, nil, err
		}
		c, err := n.Card(s.cat)
		if err != nil {
			return nil, nil, err
		}
		notes = append(notes, n)
		records = append(records, c)
	}
	return notes, records, nil
}

// RemoveNotes deletes the notes with the given guids from the cards store
// and the deck. Every guid must be in the deck.
func (s *Session) RemoveNotes(ctx context.Context, guids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	ids := make([]int64, 0, len(guids))
	for _, guid := range guids {
		n, ok := s.deck.Find(guid)
		if !ok {
			return fmt.Errorf("note %s: %w", guid, types.ErrNoteMissing)
		}
		id, ok := n.CardID()
		if !ok {
			return fmt.Errorf("note %s has no card id: %w", guid, types.ErrInvalidData)
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting card %d: %w", id, err)
		}
		if _, err := s.deck.Remove(guids[i]); err != nil {
			return err
		}
	}
	s.log.Debugw("notes removed", "namespace", s.namespace, "count", len(ids))
	return nil
}

// RemoveNote deletes one note.
func (s *Session) RemoveNote(ctx context.Context, guid string) error {
	return s.RemoveNotes(ctx, guid)
}

// ParseInput runs a parser over input and adds the resulting tuples as
// notes. An empty parser name uses the current parser. A parser failure
// leaves the deck untouched.
func (s *Session) ParseInput(ctx context.Context, parserName, input string) ([]*deck.Note, error) {
	tuples, err := s.parsers.Run(parserName, input)
	if err != nil {
		return nil, err
	}
	if len(tuples) == 0 {
		return []*deck.Note{}, nil
	}
	return s.AddNotes(ctx, tuples)
}

// CopyToDeck re-creates the selected notes as new cards in another
// namespace. The active namespace is closed while the target is open and
// loaded again afterwards. It returns the number of cards written.
func (s *Session) CopyToDeck(ctx context.Context, target string, guids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}
	if target == s.namespace {
		return 0, fmt.Errorf("copy into the open namespace %q: %w", target, types.ErrInvalidName)
	}
	if _, err := s.decks.Lookup(target); err != nil {
		return 0, err
	}

	var picked []*deck.Note
	for _, guid := range guids {
		n, ok := s.deck.Find(guid)
		if !ok {
			return 0, fmt.Errorf("note %s: %w", guid, types.ErrNoteMissing)
		}
		picked = append(picked, n)
	}
	if len(picked) == 0 {
		return 0, nil
	}

	err := s.detached(ctx, func() error {
		return s.conn.With(ctx, target, func(store types.Store) error {
			keys, err := store.Keys(ctx)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if id, ok := k.(int64); ok {
					s.ids.Reserve(id)
				}
			}
			records := make([]any, 0, len(picked))
			for _, n := range picked {
				records = append(records, &types.Card{
					ID:   s.ids.Next(),
					Type: s.cat.Type(n.Model()),
					Note: types.CardNote{Fields: n.Fields()},
				})
			}
			return store.PutMany(ctx, records)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("copying to %q: %w", target, err)
	}
	s.log.Infow("notes copied", "from", s.namespace, "to", target, "count", len(picked))
	return len(picked), nil
}
