// Package media manages the shared media assets. The media store is the
// source of truth; the list of known names is cached in settings and
// refreshed from the store's key set after every write.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Opener opens the media store for the duration of fn.
// *sqlite.Connector implements it.
type Opener interface {
	WithMedia(ctx context.Context, fn func(types.Store) error) error
}

// Manager is the media manager.
type Manager struct {
	mu       sync.Mutex
	opener   Opener
	settings *settings.Store
	names    []string
	log      *zap.SugaredLogger
}

// New returns a manager with the cached name list loaded from settings.
// A missing or corrupt cache is reset to empty.
func New(opener Opener, s *settings.Store, log *zap.SugaredLogger) *Manager {
	m := &Manager{opener: opener, settings: s, log: logging.OrNop(log)}

	var names []string
	found, err := s.GetJSON(settings.KeyMedia, &names)
	if err != nil || !found {
		if err != nil {
			m.log.Warnw("resetting corrupt media list", "error", err)
		}
		names = []string{}
		if err := s.SetJSON(settings.KeyMedia, names); err != nil {
			m.log.Warnw("could not reset media list", "error", err)
		}
	}
	m.names = names
	return m
}

// List returns the cached media names.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names)
}

func (m *Manager) known(name string) bool {
	return slices.Contains(m.names, name)
}

// Get returns one media record. Names missing from the cached list fail
// without touching the store.
func (m *Manager) Get(ctx context.Context, name string) (*types.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(name) {
		return nil, fmt.Errorf("%q: %w", name, types.ErrMediaNotFound)
	}
	var out *types.Media
	err := m.opener.WithMedia(ctx, func(s types.Store) error {
		got, err := get(ctx, s, name)
		out = got
		return err
	})
	return out, err
}

func get(ctx context.Context, s types.Store, name string) (*types.Media, error) {
	rec, err := s.Get(ctx, name)
	if errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("%q: %w", name, types.ErrMediaNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.(*types.Media), nil
}

// Put writes the record and refreshes the cached name list.
func (m *Manager) Put(ctx context.Context, media *types.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(ctx, func(s types.Store) error {
		return put(ctx, s, media)
	})
}

func put(ctx context.Context, s types.Store, media *types.Media) error {
	if err := check(media); err != nil {
		return err
	}
	return s.PutMany(ctx, []any{media})
}

// check validates a record before it is written.
func check(media *types.Media) error {
	if media == nil {
		return fmt.Errorf("nil media: %w", types.ErrInvalidData)
	}
	if err := media.Validate(); err != nil {
		return err
	}
	if media.Package && !media.Loaded() {
		return fmt.Errorf("%q has no data to package: %w", media.Name, types.ErrInvalidData)
	}
	return nil
}

// Remove deletes the record and refreshes the cached name list.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(ctx, func(s types.Store) error {
		return s.Delete(ctx, name)
	})
}

// write runs fn against the store, then replaces the cache with the
// store's key set. The cache is refreshed even when fn fails.
func (m *Manager) write(ctx context.Context, fn func(types.Store) error) error {
	return m.opener.WithMedia(ctx, func(s types.Store) error {
		opErr := fn(s)
		if err := m.refresh(ctx, s); err != nil && opErr == nil {
			return err
		}
		return opErr
	})
}

func (m *Manager) refresh(ctx context.Context, s types.Store) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return fmt.Errorf("listing media: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.(string))
	}
	m.names = names
	if err := m.settings.SetJSON(settings.KeyMedia, names); err != nil {
		return fmt.Errorf("caching media names: %w", err)
	}
	return nil
}

// Refresh reloads the cached name list from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opener.WithMedia(ctx, func(s types.Store) error {
		return m.refresh(ctx, s)
	})
}

// Update holds editor changes to a media record. Nil fields are unchanged.
type Update struct {
	Name    *string
	Desc    *string
	Package *bool
}

// Update applies the changes to an existing record. A new name writes the
// new record and then removes the old one in the same store session. A
// rejected change leaves the record untouched.
func (m *Manager) Update(ctx context.Context, name string, u Update) (*types.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(name) {
		return nil, fmt.Errorf("%q: %w", name, types.ErrMediaNotFound)
	}
	var out *types.Media
	err := m.write(ctx, func(s types.Store) error {
		cur, err := get(ctx, s, name)
		if err != nil {
			return err
		}
		next := *cur
		if u.Name != nil {
			next.Name = *u.Name
		}
		if u.Desc != nil {
			next.Info.Desc = *u.Desc
		}
		if u.Package != nil {
			next.Package = *u.Package
		}
		if err := check(&next); err != nil {
			return err
		}
		if next.Name != name && slices.Contains(m.names, next.Name) {
			return fmt.Errorf("%q already exists: %w", next.Name, types.ErrInvalidName)
		}
		// The new record is written before the old one goes, so a failed
		// write leaves the original in place.
		if err := put(ctx, s, &next); err != nil {
			return err
		}
		if next.Name != name {
			if err := s.Delete(ctx, name); err != nil {
				return err
			}
		}
		out = &next
		return nil
	})
	return out, err
}

// Rename moves a record to a new name.
func (m *Manager) Rename(ctx context.Context, from, to string) error {
	_, err := m.Update(ctx, from, Update{Name: &to})
	return err
}

// Attach loads bytes into a record and records their size. An empty
// contentType is sniffed from the data.
func (m *Manager) Attach(ctx context.Context, name string, data []byte, contentType string) (*types.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(name) {
		return nil, fmt.Errorf("%q: %w", name, types.ErrMediaNotFound)
	}
	if data == nil {
		data = []byte{}
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	var out *types.Media
	err := m.write(ctx, func(s types.Store) error {
		cur, err := get(ctx, s, name)
		if err != nil {
			return err
		}
		next := *cur
		next.Data = data
		next.Info.Size = int64(len(data))
		next.Info.Type = contentType
		if err := put(ctx, s, &next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	return out, err
}

// AddPlaceholder registers an unloaded record named "New media (n)" and
// returns its name.
func (m *Manager) AddPlaceholder(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.names) + 1
	name := fmt.Sprintf("New media (%d)", n)
	for m.known(name) {
		n++
		name = fmt.Sprintf("New media (%d)", n)
	}
	err := m.write(ctx, func(s types.Store) error {
		return put(ctx, s, &types.Media{Name: name, Info: types.MediaInfo{Size: 0}})
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Packaged fetches every known record in turn and returns those flagged for
// packaging. Names whose record has disappeared are skipped.
func (m *Manager) Packaged(ctx context.Context) ([]*types.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*types.Media{}
	if len(m.names) == 0 {
		return out, nil
	}
	err := m.opener.WithMedia(ctx, func(s types.Store) error {
		for _, name := range m.names {
			rec, err := get(ctx, s, name)
			if errors.Is(err, types.ErrMediaNotFound) {
				m.log.Warnw("cached media name has no record", "name", name)
				continue
			}
			if err != nil {
				return err
			}
			if rec.Package {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
