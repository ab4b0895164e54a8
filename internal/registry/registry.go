// Package registry tracks the deck namespaces that exist, their stable ids
// and labels, and which namespace is active. Everything is persisted in the
// settings store under the dbname, dbs and deckdatas keys.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/internal/sqlite"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// The built-in namespace. It always exists and cannot be registered.
const (
	DefaultNamespace       = "kanjiguess"
	DefaultDeckID    int64 = 1736639633110
	DefaultLabel           = "文部科学省試験デッキ"
)

// Registry is the namespace registry.
type Registry struct {
	mu       sync.Mutex
	settings *settings.Store
	log      *zap.SugaredLogger
	now      func() time.Time
}

// New returns a registry backed by s.
func New(s *settings.Store, log *zap.SugaredLogger) *Registry {
	return &Registry{settings: s, log: logging.OrNop(log), now: time.Now}
}

// Sanitize turns a user-supplied deck name into a namespace key.
func Sanitize(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// fallbackLabel is shown for a namespace with no stored deck data.
func fallbackLabel(namespace string) string {
	return strings.ReplaceAll(namespace, "_", " ")
}

// extra returns the user namespaces. A corrupt value reads as empty.
func (r *Registry) extra() []string {
	var dbs []string
	if _, err := r.settings.GetJSON(settings.KeyNamespaces, &dbs); err != nil {
		r.log.Warnw("ignoring corrupt namespace list", "error", err)
		return nil
	}
	out := dbs[:0]
	for _, ns := range dbs {
		if ns != DefaultNamespace {
			out = append(out, ns)
		}
	}
	return out
}

// datas returns stored deck data merged over the default entry.
func (r *Registry) datas() map[string]types.DeckData {
	out := map[string]types.DeckData{
		DefaultNamespace: {ID: DefaultDeckID, Label: DefaultLabel},
	}
	var stored map[string]types.DeckData
	if _, err := r.settings.GetJSON(settings.KeyDeckData, &stored); err != nil {
		r.log.Warnw("ignoring corrupt deck data", "error", err)
		return out
	}
	for ns, d := range stored {
		out[ns] = d
	}
	return out
}

// Namespaces returns every registered namespace, the default first.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{DefaultNamespace}, r.extra()...)
}

// List returns the registry entry of every registered namespace.
func (r *Registry) List() map[string]types.DeckData {
	r.mu.Lock()
	defer r.mu.Unlock()

	datas := r.datas()
	out := map[string]types.DeckData{DefaultNamespace: datas[DefaultNamespace]}
	for _, ns := range r.extra() {
		out[ns] = entryFor(datas, ns)
	}
	return out
}

func entryFor(datas map[string]types.DeckData, ns string) types.DeckData {
	d, ok := datas[ns]
	if !ok {
		return types.DeckData{Label: fallbackLabel(ns)}
	}
	if d.Label == "" {
		d.Label = fallbackLabel(ns)
	}
	return d
}

// Lookup returns the entry of one namespace.
func (r *Registry) Lookup(namespace string) (types.DeckData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registered(namespace) {
		return types.DeckData{}, fmt.Errorf("%q: %w", namespace, types.ErrNamespaceNotFound)
	}
	return entryFor(r.datas(), namespace), nil
}

func (r *Registry) registered(namespace string) bool {
	if namespace == DefaultNamespace {
		return true
	}
	for _, ns := range r.extra() {
		if ns == namespace {
			return true
		}
	}
	return false
}

// Register adds a namespace with the given id and label.
func (r *Registry) Register(namespace string, id int64, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(namespace, id, label, false)
}

// Add creates a namespace from a user-supplied deck name and makes it active.
// The id is the current epoch time in milliseconds and the label is the name
// as typed. It returns the namespace key.
func (r *Registry) Add(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns := Sanitize(name)
	if ns == "" {
		return "", fmt.Errorf("empty deck name: %w", types.ErrInvalidName)
	}
	if err := r.register(ns, r.now().UnixMilli(), strings.TrimSpace(name), true); err != nil {
		return "", err
	}
	return ns, nil
}

func (r *Registry) register(namespace string, id int64, label string, activate bool) error {
	if namespace == DefaultNamespace {
		return fmt.Errorf("%q: %w", namespace, types.ErrReservedNamespace)
	}
	if namespace != Sanitize(namespace) {
		return fmt.Errorf("%q contains spaces: %w", namespace, types.ErrInvalidName)
	}
	if err := sqlite.ValidNamespace(namespace); err != nil {
		return err
	}
	if label == "" {
		return types.ErrEmptyLabel
	}
	if r.registered(namespace) {
		return fmt.Errorf("%q: %w", namespace, types.ErrDuplicateNamespace)
	}

	datas := r.datas()
	datas[namespace] = types.DeckData{ID: id, Label: label}
	changes, err := r.changes(append(r.extra(), namespace), datas)
	if err != nil {
		return err
	}
	if activate {
		changes[settings.KeyActiveNamespace] = &namespace
	}
	if err := r.settings.SetMany(changes); err != nil {
		return fmt.Errorf("registering %q: %w", namespace, err)
	}
	r.log.Infow("namespace registered", "namespace", namespace, "id", id, "label", label)
	return nil
}

// changes encodes the namespace list and deck data for one settings write.
// The default entry is only stored once it differs from the built-in one.
func (r *Registry) changes(extra []string, datas map[string]types.DeckData) (map[string]*string, error) {
	if d := datas[DefaultNamespace]; d.ID == DefaultDeckID && d.Label == DefaultLabel {
		delete(datas, DefaultNamespace)
	}
	if extra == nil {
		extra = []string{}
	}
	dbs, err := settings.JSON(extra)
	if err != nil {
		return nil, err
	}
	deckdatas, err := settings.JSON(datas)
	if err != nil {
		return nil, err
	}
	return map[string]*string{
		settings.KeyNamespaces: dbs,
		settings.KeyDeckData:   deckdatas,
	}, nil
}

// Rename changes the display label of a namespace. The id is kept.
func (r *Registry) Rename(namespace, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if label = strings.TrimSpace(label); label == "" {
		return types.ErrEmptyLabel
	}
	if !r.registered(namespace) {
		return fmt.Errorf("%q: %w", namespace, types.ErrNamespaceNotFound)
	}

	datas := r.datas()
	d := entryFor(datas, namespace)
	d.Label = label
	datas[namespace] = d
	changes, err := r.changes(r.extra(), datas)
	if err != nil {
		return err
	}
	if err := r.settings.SetMany(changes); err != nil {
		return fmt.Errorf("renaming %q: %w", namespace, err)
	}
	return nil
}

// Apply registers or overwrites many entries in one settings write. Entries
// for the default namespace update its deck data only.
func (r *Registry) Apply(entries map[string]types.DeckData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	extra := r.extra()
	known := make(map[string]bool, len(extra))
	for _, ns := range extra {
		known[ns] = true
	}
	datas := r.datas()
	for _, ns := range slices.Sorted(maps.Keys(entries)) {
		if err := sqlite.ValidNamespace(ns); err != nil {
			return err
		}
		if ns != DefaultNamespace && !known[ns] {
			extra = append(extra, ns)
			known[ns] = true
		}
		datas[ns] = entries[ns]
	}

	changes, err := r.changes(extra, datas)
	if err != nil {
		return err
	}
	if err := r.settings.SetMany(changes); err != nil {
		return fmt.Errorf("applying registry entries: %w", err)
	}
	r.log.Infow("registry updated", "entries", len(entries))
	return nil
}

// SetActive selects the namespace opened by the next session load.
func (r *Registry) SetActive(namespace string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registered(namespace) {
		return fmt.Errorf("%q: %w", namespace, types.ErrNamespaceNotFound)
	}
	return r.settings.Set(settings.KeyActiveNamespace, namespace)
}

// Active returns the active namespace. A stored name that is no longer
// registered falls back to the default.
func (r *Registry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.settings.Get(settings.KeyActiveNamespace)
	if !ok || !r.registered(ns) {
		return DefaultNamespace
	}
	return ns
}

// Resolve maps deck ids, labels or namespace keys to namespaces, in registry
// order. A selector that matches nothing is an error.
func (r *Registry) Resolve(selectors ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	datas := r.datas()
	order := append([]string{DefaultNamespace}, r.extra()...)
	matched := make(map[string]bool)
	for _, sel := range selectors {
		found := false
		for _, ns := range order {
			d := entryFor(datas, ns)
			if sel == ns || sel == d.Label || sel == strconv.FormatInt(d.ID, 10) {
				matched[ns] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("deck %q: %w", sel, types.ErrNamespaceNotFound)
		}
	}

	var out []string
	for _, ns := range order {
		if matched[ns] {
			out = append(out, ns)
		}
	}
	return out, nil
}

// InputMethod reports whether the input method is enabled for a note field.
func (r *Registry) InputMethod(field string) bool {
	_, off := r.settings.Get(settings.InputMethodKey(field))
	return !off
}

// SetInputMethod toggles the input method of a note field.
func (r *Registry) SetInputMethod(field string, on bool) error {
	if on {
		return r.settings.Remove(settings.InputMethodKey(field))
	}
	return r.settings.Set(settings.InputMethodKey(field), "true")
}

// Model returns the persisted model selector, 0 when unset or corrupt.
func (r *Registry) Model() int {
	raw, ok := r.settings.Get(settings.KeyModel)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetModel persists the model selector.
func (r *Registry) SetModel(model int) error {
	if model < 0 {
		return fmt.Errorf("model %d: %w", model, types.ErrInvalidData)
	}
	return r.settings.Set(settings.KeyModel, strconv.Itoa(model))
}
