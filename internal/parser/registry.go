package parser

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Registry holds the named parsers. Sources are persisted under the parsers
// setting; the active parser name under curparser.
type Registry struct {
	mu       sync.Mutex
	settings *settings.Store
	funcs    map[string]Transform
	log      *zap.SugaredLogger
}

// NewRegistry returns a registry backed by s.
func NewRegistry(s *settings.Store, log *zap.SugaredLogger) *Registry {
	return &Registry{settings: s, funcs: make(map[string]Transform), log: logging.OrNop(log)}
}

// saved reads the stored sources. Anything that is not a JSON object reads
// as empty and non-string values are dropped.
func (r *Registry) saved() map[string]string {
	out := make(map[string]string)
	raw, ok := r.settings.Get(settings.KeyParsers)
	if !ok {
		return out
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		r.log.Warnw("ignoring corrupt parser sources", "error", err)
		return out
	}
	for name, v := range obj {
		if src, ok := v.(string); ok {
			out[name] = src
		}
	}
	return out
}

func (r *Registry) all() map[string]string {
	out := map[string]string{DefaultName: DefaultSource}
	maps.Copy(out, r.saved())
	return out
}

// All returns every saved source, including the default.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.all()
}

// Names returns source and programmatic parser names, the default first.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.all()
	for name := range r.funcs {
		set[name] = ""
	}
	delete(set, DefaultName)
	return append([]string{DefaultName}, slices.Sorted(maps.Keys(set))...)
}

// Get returns the source of a saved parser.
func (r *Registry) Get(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.all()[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, types.ErrParserNotFound)
	}
	return src, nil
}

// Set stores a parser source after checking that it compiles. A nil source
// deletes the parser; deleting the default is a no-op.
func (r *Registry) Set(name string, source *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty parser name: %w", types.ErrInvalidName)
	}
	saved := r.saved()
	if source == nil {
		if name == DefaultName {
			return nil
		}
		if _, ok := saved[name]; !ok {
			return fmt.Errorf("%q: %w", name, types.ErrParserNotFound)
		}
		delete(saved, name)
		return r.store(saved)
	}

	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("%q is a built-in transform: %w", name, types.ErrInvalidName)
	}
	if _, err := Compile(*source); err != nil {
		return fmt.Errorf("parser %q: %w", name, err)
	}
	saved[name] = *source
	return r.store(saved)
}

// Merge overwrites saved sources with the given ones in one write. Sources
// are stored even when they do not compile; running them reports the error.
func (r *Registry) Merge(sources map[string]string) error {
	if len(sources) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := r.saved()
	for name, src := range sources {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := Compile(src); err != nil {
			r.log.Warnw("merged parser does not compile", "parser", name, "error", err)
		}
		saved[name] = src
	}
	return r.store(saved)
}

func (r *Registry) store(saved map[string]string) error {
	if saved[DefaultName] == DefaultSource {
		delete(saved, DefaultName)
	}
	return r.settings.SetJSON(settings.KeyParsers, saved)
}

// RegisterFunc adds a programmatic transform under name. It lives only in
// this process.
func (r *Registry) RegisterFunc(name string, t Transform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(name) == "" || name == DefaultName {
		return fmt.Errorf("parser name %q: %w", name, types.ErrInvalidName)
	}
	if _, ok := r.all()[name]; ok {
		return fmt.Errorf("%q already has a saved source: %w", name, types.ErrInvalidName)
	}
	r.funcs[name] = t
	return nil
}

func (r *Registry) exists(name string) bool {
	if _, ok := r.funcs[name]; ok {
		return true
	}
	_, ok := r.all()[name]
	return ok
}

// CurrentName returns the active parser, or the default when the stored
// name no longer resolves.
func (r *Registry) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.settings.Get(settings.KeyParser)
	if !ok || !r.exists(name) {
		return DefaultName
	}
	return name
}

// SetCurrent selects the active parser.
func (r *Registry) SetCurrent(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.exists(name) {
		return fmt.Errorf("%q: %w", name, types.ErrParserNotFound)
	}
	return r.settings.Set(settings.KeyParser, name)
}

// Lookup returns the transform of a parser.
func (r *Registry) Lookup(name string) (Transform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.funcs[name]; ok {
		return t, nil
	}
	src, ok := r.all()[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrParserNotFound)
	}
	t, err := Compile(src)
	if err != nil {
		return nil, fmt.Errorf("parser %q: %w", name, err)
	}
	return t, nil
}

// Run applies a named parser to input. An empty name runs the current one.
func (r *Registry) Run(name, input string) ([][]string, error) {
	if name == "" {
		name = r.CurrentName()
	}
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return run(name, t, input)
}

// Test applies an unsaved source to input.
func Test(source, input string) ([][]string, error) {
	t, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return run("test", t, input)
}

func run(name string, t Transform, input string) (tuples [][]string, err error) {
	if strings.TrimSpace(input) == "" {
		return nil, types.ErrEmptyInput
	}
	defer func() {
		if p := recover(); p != nil {
			tuples = nil
			err = fmt.Errorf("parser %q panicked: %v: %w", name, p, types.ErrParserFailed)
		}
	}()
	tuples, err = t.Apply(input)
	if err != nil {
		return nil, fmt.Errorf("parser %q: %v: %w", name, err, types.ErrParserFailed)
	}
	return tuples, nil
}
