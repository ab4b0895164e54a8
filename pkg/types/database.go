package types

import (
	"context"
	"errors"
)

// ConnState is the lifecycle state of a Database connection.
type ConnState int

// Connection states. A Database moves closed -> opening -> ready -> closing -> closed.
const (
	StateClosed ConnState = iota
	StateOpening
	StateReady
	StateClosing
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Database is one embedded store file addressed by name.
type Database interface {
	// Name returns the namespace (or "media") this database is bound to.
	Name() string

	// Attach opens the underlying file, applies the schema and moves the
	// connection to StateReady. Returns ErrAlreadyAttached when already open.
	Attach(ctx context.Context) error

	// Detach closes the connection. Idempotent.
	Detach() error

	// State reports the current connection state.
	State() ConnState

	// Store returns the object store of the given kind.
	// Returns ErrStoreNotFound if the database has no such store and
	// ErrNotReady if the connection is not ready.
	Store(kind string) (Store, error)
}

// Database lifecycle errors.
var (
	ErrNotReady        = errors.New("database is not ready")
	ErrAlreadyAttached = errors.New("database is already attached")
	ErrStoreNotFound   = errors.New("store not found")
	ErrConnectionBusy  = errors.New("another namespace connection is open")
	ErrLocked          = errors.New("database file is locked by another process")
	ErrSchemaMismatch  = errors.New("schema version mismatch")
)
