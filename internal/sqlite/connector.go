package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Connector hands out card backends one namespace at a time. A namespace
// stays open until its backend is detached; opening a different namespace
// in the meantime fails with ErrConnectionBusy.
type Connector struct {
	mu      sync.Mutex
	dataDir string
	log     *zap.SugaredLogger
	active  *Backend
}

// NewConnector returns a connector for card files under dataDir.
func NewConnector(dataDir string, log *zap.SugaredLogger) *Connector {
	return &Connector{dataDir: dataDir, log: logging.OrNop(log)}
}

// DataDir returns the data directory the connector opens files under.
func (c *Connector) DataDir() string { return c.dataDir }

// ValidNamespace reports whether name can be used as a card file name.
func ValidNamespace(name string) error {
	if name == "" || name == "." || name == ".." || name == MediaName ||
		strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("namespace %q: %w", name, types.ErrInvalidName)
	}
	return nil
}

// Open returns the attached backend for namespace. Opening the namespace
// that is already open returns the same backend.
func (c *Connector) Open(ctx context.Context, namespace string) (*Backend, error) {
	if err := ValidNamespace(namespace); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if c.active.Name() == namespace {
			return c.active, nil
		}
		return nil, fmt.Errorf("open %q while %q is open: %w", namespace, c.active.Name(), types.ErrConnectionBusy)
	}

	b := NewCardBackend(c.dataDir, namespace, c.log)
	b.onDetach = c.released
	if err := b.Attach(ctx); err != nil {
		return nil, fmt.Errorf("opening namespace %q: %w", namespace, err)
	}
	c.active = b
	return b, nil
}

func (c *Connector) released(b *Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == b {
		c.active = nil
	}
}

// Active reports the namespace currently open, if any.
func (c *Connector) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", false
	}
	return c.active.Name(), true
}

// With opens namespace, runs fn against its cards store and detaches before
// returning. The namespace must not already be open.
func (c *Connector) With(ctx context.Context, namespace string, fn func(types.Store) error) (err error) {
	if name, ok := c.Active(); ok {
		return fmt.Errorf("open %q while %q is open: %w", namespace, name, types.ErrConnectionBusy)
	}
	b, err := c.Open(ctx, namespace)
	if err != nil {
		return err
	}
	defer func() {
		if derr := b.Detach(); derr != nil && err == nil {
			err = derr
		}
	}()

	store, err := b.Store(types.CardsStore)
	if err != nil {
		return err
	}
	return fn(store)
}

// WithMedia opens the shared media file for the duration of fn.
func (c *Connector) WithMedia(ctx context.Context, fn func(types.Store) error) (err error) {
	b := NewMediaBackend(c.dataDir, c.log)
	if err := b.Attach(ctx); err != nil {
		return fmt.Errorf("opening media store: %w", err)
	}
	defer func() {
		if derr := b.Detach(); derr != nil && err == nil {
			err = derr
		}
	}()

	store, err := b.Store(types.MediaStore)
	if err != nil {
		return err
	}
	return fn(store)
}
