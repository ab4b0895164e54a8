package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Schema DDL. Card values keep the note as JSON text so the on-disk shape
// matches the interchange card record.
const (
	createCards = `CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    type INTEGER NOT NULL DEFAULT 0,
    note TEXT NOT NULL
);`

	createMedia = `CREATE TABLE IF NOT EXISTS media (
    name TEXT PRIMARY KEY,
    data BLOB,
    info TEXT NOT NULL DEFAULT '{}',
    package INTEGER NOT NULL DEFAULT 0
);`
)

// Schema versions stored in PRAGMA user_version.
const (
	CardSchemaVersion  = 5
	MediaSchemaVersion = 1

	// Card files at or below this version predate the current cards layout
	// and are rebuilt empty.
	legacyCardVersion = 4
)

// schema describes one kind of database file.
type schema struct {
	kind    string
	version int
	ddl     []string
	// drop lists tables removed when upgrading from a version at or below
	// dropBelow.
	drop      []string
	dropBelow int
}

var (
	cardSchema = schema{
		kind:      types.CardsStore,
		version:   CardSchemaVersion,
		ddl:       []string{createCards},
		drop:      []string{"cards"},
		dropBelow: legacyCardVersion,
	}

	mediaSchema = schema{
		kind:    types.MediaStore,
		version: MediaSchemaVersion,
		ddl:     []string{createMedia},
	}
)

// migrate brings the file to the schema version. Older card layouts are
// dropped and recreated; a newer file is refused.
func (s schema) migrate(ctx context.Context, db *sql.DB) (from int, err error) {
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&from); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if from == s.version {
		return from, nil
	}
	if from > s.version {
		return from, fmt.Errorf("%s store at version %d, supported %d: %w", s.kind, from, s.version, types.ErrSchemaMismatch)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return from, fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	if from <= s.dropBelow {
		for _, table := range s.drop {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return from, fmt.Errorf("dropping %s: %w", table, err)
			}
		}
	}
	for _, stmt := range s.ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return from, fmt.Errorf("creating schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
		return from, fmt.Errorf("setting schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return from, fmt.Errorf("committing schema: %w", err)
	}
	return from, nil
}
