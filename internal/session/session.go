// Package session is the application context: it owns the settings file, the
// registries, the media manager and the connection to the active
// namespace, and keeps the in-memory deck of that namespace in sync with its
// cards store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/media"
	"github.com/mesh-intelligence/ganki/internal/parser"
	"github.com/mesh-intelligence/ganki/internal/paths"
	"github.com/mesh-intelligence/ganki/internal/pipeline"
	"github.com/mesh-intelligence/ganki/internal/registry"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/internal/sqlite"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Options configures Open.
type Options struct {
	Config  types.Config
	Catalog *deck.Catalog // nil uses deck.Builtin
	Log     *zap.SugaredLogger
}

// Session holds one workspace open. All methods are safe for concurrent use;
// they are serialized by one mutex.
type Session struct {
	mu  sync.Mutex
	cfg types.Config
	log *zap.SugaredLogger

	settings *settings.Store
	decks    *registry.Registry
	parsers  *parser.Registry
	media    *media.Manager
	conn     *sqlite.Connector
	cat      *deck.Catalog
	ids      *deck.IDAllocator
	exporter *pipeline.Exporter
	importer *pipeline.Importer

	namespace string
	backend   *sqlite.Backend
	store     types.Store
	deck      *deck.Deck
}

// Open builds the session components for the configured data directory and
// loads the active namespace.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	log := logging.OrNop(opts.Log)
	cat := opts.Catalog
	if cat == nil {
		cat = deck.Builtin()
	}

	st, err := settings.Open(paths.SettingsFile(opts.Config.DataDir))
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:      opts.Config,
		log:      log,
		settings: st,
		decks:    registry.New(st, log),
		parsers:  parser.NewRegistry(st, log),
		conn:     sqlite.NewConnector(opts.Config.DataDir, log),
		cat:      cat,
		ids:      deck.NewIDAllocator(),
	}
	s.media = media.New(s.conn, st, log)
	s.exporter = pipeline.NewExporter(s.conn, s.decks, s.parsers, s.media, cat, log)
	s.importer = pipeline.NewImporter(s.conn, s.decks, s.parsers, log)

	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load (re)opens the active namespace and rebuilds its deck from the cards
// store. Any previously open namespace is closed first.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.close(); err != nil {
		return err
	}
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	ns := s.decks.Active()
	data, err := s.decks.Lookup(ns)
	if err != nil {
		return err
	}
	b, err := s.conn.Open(ctx, ns)
	if err != nil {
		return err
	}
	store, err := b.Store(types.CardsStore)
	if err != nil {
		b.Detach()
		return err
	}
	records, err := store.GetAll(ctx)
	if err != nil {
		b.Detach()
		return fmt.Errorf("loading %q: %w", ns, err)
	}

	d := deck.New(data.ID, data.Label)
	for _, r := range records {
		c := r.(*types.Card)
		s.ids.Reserve(c.ID)
		n, err := deck.FromCard(s.cat, c)
		if err != nil {
			s.log.Warnw("skipping card", "namespace", ns, "error", err)
			continue
		}
		d.AddNote(n)
	}

	s.namespace, s.backend, s.store, s.deck = ns, b, store, d
	s.log.Debugw("namespace loaded", "namespace", ns, "notes", d.Len())
	return nil
}

// Close detaches the active namespace.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close()
}

func (s *Session) close() error {
	if s.backend == nil {
		return nil
	}
	err := s.backend.Detach()
	s.backend, s.store = nil, nil
	return err
}

// detached closes the active namespace, runs fn and loads the active
// namespace again, even when fn fails.
func (s *Session) detached(ctx context.Context, fn func() error) error {
	if err := s.close(); err != nil {
		return err
	}
	err := fn()
	if lerr := s.load(ctx); lerr != nil {
		return errors.Join(err, lerr)
	}
	return err
}

func (s *Session) ready() error {
	if s.store == nil {
		return types.ErrNotReady
	}
	return nil
}

// Accessors for the session components.

func (s *Session) Config() types.Config         { return s.cfg }
func (s *Session) Registry() *registry.Registry { return s.decks }
func (s *Session) Parsers() *parser.Registry    { return s.parsers }
func (s *Session) Media() *media.Manager        { return s.media }
func (s *Session) Catalog() *deck.Catalog       { return s.cat }
func (s *Session) Settings() *settings.Store    { return s.settings }
func (s *Session) Connector() *sqlite.Connector { return s.conn }
func (s *Session) Exporter() *pipeline.Exporter { return s.exporter }
func (s *Session) Importer() *pipeline.Importer { return s.importer }

// Namespace returns the loaded namespace.
func (s *Session) Namespace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namespace
}

// DeckData returns the id and label of the loaded deck.
func (s *Session) DeckData() types.DeckData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deck == nil {
		return types.DeckData{}
	}
	return types.DeckData{ID: s.deck.ID(), Label: s.deck.Label()}
}

// Notes returns the notes of the loaded deck in order.
func (s *Session) Notes() []*deck.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deck == nil {
		return nil
	}
	return s.deck.Notes()
}

// Model returns the model new notes are created with.
func (s *Session) Model() *deck.Model {
	return s.cat.Lookup(s.decks.Model())
}

// SetModel selects the model for new notes by catalog type.
func (s *Session) SetModel(t int) error {
	if _, ok := s.cat.Get(t); !ok {
		return fmt.Errorf("model type %d: %w", t, types.ErrInvalidData)
	}
	return s.decks.SetModel(t)
}

// SwitchNamespace makes namespace active and reloads the session.
func (s *Session) SwitchNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.decks.SetActive(namespace); err != nil {
		return err
	}
	if err := s.close(); err != nil {
		return err
	}
	return s.load(ctx)
}

// AddDeck registers a new namespace from a deck name, makes it active and
// reloads. It returns the namespace key.
func (s *Session) AddDeck(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.decks.Add(name)
	if err != nil {
		return "", err
	}
	if err := s.close(); err != nil {
		return ns, err
	}
	return ns, s.load(ctx)
}

// Rename changes the label of the loaded deck.
func (s *Session) Rename(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.decks.Rename(s.namespace, label); err != nil {
		return err
	}
	data, err := s.decks.Lookup(s.namespace)
	if err != nil {
		return err
	}
	s.deck.SetLabel(data.Label)
	return nil
}

// Duplicates classifies the loaded notes against each other, keyed by guid.
func (s *Session) Duplicates() map[string]deck.Duplicate {
	return deck.FindDuplicates(s.Notes())
}
