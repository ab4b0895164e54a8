// Package sqlite implements the namespace key-value stores on SQLite.
// Each namespace is one database file holding a cards table; the media
// assets shared by every namespace live in a separate file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/paths"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// MediaName is the name of the shared media database.
const MediaName = "media"

// pragmas applied to every connection after open.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// Backend is one attached database file. It implements types.Database.
// Store operations hold the read lock for their duration, so Detach waits
// for in-flight operations to finish.
type Backend struct {
	mu     sync.RWMutex
	name   string
	path   string
	schema schema
	state  types.ConnState
	db     *sql.DB
	lock   *flock.Flock
	stores map[string]types.Store
	log    *zap.SugaredLogger

	// onDetach runs after the backend reaches StateClosed.
	onDetach func(*Backend)
}

// NewCardBackend returns a detached backend for the namespace's card file.
func NewCardBackend(dataDir, namespace string, log *zap.SugaredLogger) *Backend {
	return newBackend(namespace, paths.DeckDatabase(dataDir, namespace), cardSchema, log)
}

// NewMediaBackend returns a detached backend for the shared media file.
func NewMediaBackend(dataDir string, log *zap.SugaredLogger) *Backend {
	return newBackend(MediaName, paths.MediaDatabase(dataDir), mediaSchema, log)
}

func newBackend(name, path string, s schema, log *zap.SugaredLogger) *Backend {
	return &Backend{
		name:   name,
		path:   path,
		schema: s,
		state:  types.StateClosed,
		stores: make(map[string]types.Store),
		log:    logging.OrNop(log),
	}
}

// Name returns the namespace this backend is bound to.
func (b *Backend) Name() string { return b.name }

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// State reports the connection state.
func (b *Backend) State() types.ConnState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Attach opens the file, takes the cross-process lock and applies the schema.
// On failure the backend is left closed.
func (b *Backend) Attach(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != types.StateClosed {
		return types.ErrAlreadyAttached
	}
	b.state = types.StateOpening

	if err := b.open(ctx); err != nil {
		b.release()
		b.state = types.StateClosed
		return err
	}

	switch b.schema.kind {
	case types.CardsStore:
		b.stores[types.CardsStore] = &cardsStore{backend: b}
	case types.MediaStore:
		b.stores[types.MediaStore] = &mediaStore{backend: b}
	}
	b.state = types.StateReady
	b.log.Debugw("store attached", "name", b.name, "path", b.path)
	return nil
}

func (b *Backend) open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	b.lock = flock.New(paths.LockFile(b.path))
	locked, err := b.lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", b.path, err)
	}
	if !locked {
		b.lock = nil
		return fmt.Errorf("%s: %w", b.path, types.ErrLocked)
	}

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.path, err)
	}
	// One connection per file keeps every operation on the same SQLite handle.
	db.SetMaxOpenConns(1)
	b.db = db

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}

	from, err := b.schema.migrate(ctx, db)
	if err != nil {
		return err
	}
	if from != b.schema.version {
		b.log.Infow("store schema upgraded", "name", b.name, "from", from, "to", b.schema.version)
	}
	return nil
}

// release closes the handle and drops the file lock. Caller holds mu.
func (b *Backend) release() error {
	var firstErr error
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing %s: %w", b.path, err)
		}
		b.db = nil
	}
	if b.lock != nil {
		if err := b.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unlocking %s: %w", b.path, err)
		}
		b.lock = nil
	}
	b.stores = make(map[string]types.Store)
	return firstErr
}

// Detach closes the connection. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	if b.state == types.StateClosed {
		b.mu.Unlock()
		return nil
	}
	b.state = types.StateClosing
	err := b.release()
	b.state = types.StateClosed
	hook := b.onDetach
	b.mu.Unlock()

	b.log.Debugw("store detached", "name", b.name)
	if hook != nil {
		hook(b)
	}
	return err
}

// Store returns the object store of the given kind.
func (b *Backend) Store(kind string) (types.Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.state != types.StateReady {
		return nil, types.ErrNotReady
	}
	s, ok := b.stores[kind]
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", kind, b.name, types.ErrStoreNotFound)
	}
	return s, nil
}

// withDB runs fn with the open handle while holding the read lock.
func (b *Backend) withDB(fn func(*sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.state != types.StateReady || b.db == nil {
		return types.ErrNotReady
	}
	return fn(b.db)
}

// withTx runs fn inside one transaction. Any error rolls back every write.
func (b *Backend) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return b.withDB(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}
