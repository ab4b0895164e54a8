package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// cardsStore is the cards object store of one namespace file.
type cardsStore struct {
	backend *Backend
}

func (s *cardsStore) Kind() string { return types.CardsStore }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*types.Card, error) {
	var (
		card types.Card
		note string
	)
	if err := row.Scan(&card.ID, &card.Type, &note); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(note), &card.Note); err != nil {
		return nil, fmt.Errorf("card %d: decoding note: %w", card.ID, err)
	}
	return &card, nil
}

// GetAll returns every card ordered by id.
func (s *cardsStore) GetAll(ctx context.Context) ([]any, error) {
	var out []any
	err := s.backend.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT id, type, note FROM cards ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying cards: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			card, err := scanCard(rows)
			if err != nil {
				return err
			}
			out = append(out, card)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the card with the given id.
func (s *cardsStore) Get(ctx context.Context, key any) (any, error) {
	id, err := cardKey(key)
	if err != nil {
		return nil, err
	}
	var card *types.Card
	err = s.backend.withDB(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT id, type, note FROM cards WHERE id = ?", id)
		c, err := scanCard(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %d: %w", id, types.ErrNotFound)
		}
		card = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Keys returns every card id in order.
func (s *cardsStore) Keys(ctx context.Context) ([]any, error) {
	var out []any
	err := s.backend.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT id FROM cards ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying card ids: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out = append(out, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutMany inserts or replaces cards in one transaction.
func (s *cardsStore) PutMany(ctx context.Context, records []any) error {
	if len(records) == 0 {
		return nil
	}
	return s.backend.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO cards (id, type, note) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("preparing card insert: %w", err)
		}
		defer stmt.Close()

		for i, record := range records {
			card, err := toCard(record)
			if err != nil {
				return fmt.Errorf("card %d of %d: %w", i+1, len(records), err)
			}
			note, err := json.Marshal(card.Note)
			if err != nil {
				return fmt.Errorf("card %d: encoding note: %w", card.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, card.ID, card.Type, string(note)); err != nil {
				return fmt.Errorf("writing card %d: %w", card.ID, err)
			}
		}
		return nil
	})
}

// Delete removes one card. A missing id is not an error.
func (s *cardsStore) Delete(ctx context.Context, key any) error {
	id, err := cardKey(key)
	if err != nil {
		return err
	}
	return s.backend.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting card %d: %w", id, err)
		}
		return nil
	})
}

// Clear removes every card.
func (s *cardsStore) Clear(ctx context.Context) error {
	return s.backend.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DELETE FROM cards"); err != nil {
			return fmt.Errorf("clearing cards: %w", err)
		}
		return nil
	})
}
