package types

import (
	"context"
	"errors"
)

// Store kinds.
const (
	CardsStore = "cards"
	MediaStore = "media"
)

// Store provides keyed access to the records of one object store.
// Records are passed as pointers to the concrete record type of the store
// (*Card for cards, *Media for media); the key is the record's primary key
// (int64 card id, string media name).
type Store interface {
	// Kind returns the store kind (CardsStore or MediaStore).
	Kind() string

	// GetAll returns every record in key order.
	GetAll(ctx context.Context) ([]any, error)

	// Get returns the record with the given key, or ErrNotFound.
	Get(ctx context.Context, key any) (any, error)

	// Keys returns every primary key in key order.
	Keys(ctx context.Context) ([]any, error)

	// PutMany inserts or replaces all records as one unit. Either every
	// record is written or none is. An empty batch returns nil immediately.
	PutMany(ctx context.Context, records []any) error

	// Delete removes the record with the given key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key any) error

	// Clear removes every record.
	Clear(ctx context.Context) error
}

// Record errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidKey  = errors.New("invalid record key")
	ErrInvalidData = errors.New("invalid record data")
)
