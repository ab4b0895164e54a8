package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// mediaStore is the shared media object store.
type mediaStore struct {
	backend *Backend
}

func (s *mediaStore) Kind() string { return types.MediaStore }

func scanMedia(row rowScanner) (*types.Media, error) {
	var (
		m    types.Media
		info string
	)
	if err := row.Scan(&m.Name, &m.Data, &info, &m.Package); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(info), &m.Info); err != nil {
		return nil, fmt.Errorf("media %q: decoding info: %w", m.Name, err)
	}
	return &m, nil
}

// GetAll returns every media record ordered by name.
func (s *mediaStore) GetAll(ctx context.Context) ([]any, error) {
	var out []any
	err := s.backend.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT name, data, info, package FROM media ORDER BY name")
		if err != nil {
			return fmt.Errorf("querying media: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMedia(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the media record with the given name.
func (s *mediaStore) Get(ctx context.Context, key any) (any, error) {
	name, err := mediaKey(key)
	if err != nil {
		return nil, err
	}
	var m *types.Media
	err = s.backend.withDB(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT name, data, info, package FROM media WHERE name = ?", name)
		got, err := scanMedia(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("media %q: %w", name, types.ErrNotFound)
		}
		m = got
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Keys returns every media name in order.
func (s *mediaStore) Keys(ctx context.Context) ([]any, error) {
	var out []any
	err := s.backend.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT name FROM media ORDER BY name")
		if err != nil {
			return fmt.Errorf("querying media names: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			out = append(out, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutMany inserts or replaces media records in one transaction.
func (s *mediaStore) PutMany(ctx context.Context, records []any) error {
	if len(records) == 0 {
		return nil
	}
	return s.backend.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO media (name, data, info, package) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("preparing media insert: %w", err)
		}
		defer stmt.Close()

		for i, record := range records {
			m, err := toMedia(record)
			if err != nil {
				return fmt.Errorf("media %d of %d: %w", i+1, len(records), err)
			}
			info, err := json.Marshal(m.Info)
			if err != nil {
				return fmt.Errorf("media %q: encoding info: %w", m.Name, err)
			}
			var data any
			if m.Data != nil {
				data = m.Data
			}
			if _, err := stmt.ExecContext(ctx, m.Name, data, string(info), m.Package); err != nil {
				return fmt.Errorf("writing media %q: %w", m.Name, err)
			}
		}
		return nil
	})
}

// Delete removes one media record. A missing name is not an error.
func (s *mediaStore) Delete(ctx context.Context, key any) error {
	name, err := mediaKey(key)
	if err != nil {
		return err
	}
	return s.backend.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DELETE FROM media WHERE name = ?", name); err != nil {
			return fmt.Errorf("deleting media %q: %w", name, err)
		}
		return nil
	})
}

// Clear removes every media record.
func (s *mediaStore) Clear(ctx context.Context) error {
	return s.backend.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DELETE FROM media"); err != nil {
			return fmt.Errorf("clearing media: %w", err)
		}
		return nil
	})
}
