// Package settings implements the flat string key-value settings store.
// Values live in one JSON object file, rewritten atomically on every change,
// so a multi-key update is observed entirely or not at all.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Fixed setting keys.
const (
	KeyActiveNamespace = "dbname"
	KeyNamespaces      = "dbs"
	KeyDeckData        = "deckdatas"
	KeyModel           = "model"
	KeyParser          = "curparser"
	KeyParsers         = "parsers"
	KeyMedia           = "media"
)

// InputMethodKey returns the key of the per-field "input method off" flag.
func InputMethodKey(field string) string {
	return "noIME_" + field
}

// Store is a string-keyed settings map persisted to a JSON file.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// Open loads the settings file at path. A missing file yields an empty store;
// the file is created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("decoding settings %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns every stored key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]*string{key: &value})
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	return s.SetMany(map[string]*string{key: nil})
}

// SetMany applies every change in one file write. A nil value removes the key.
// On failure neither the file nor the in-memory view changes.
func (s *Store) SetMany(changes map[string]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+len(changes))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range changes {
		if v == nil {
			delete(next, k)
		} else {
			next[k] = *v
		}
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// GetJSON decodes the JSON value under key into v. It reports false when the
// key is absent; a value that does not decode returns an error and leaves v
// untouched.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decoding setting %q: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v encoded as JSON under key.
func (s *Store) SetJSON(key string, v any) error {
	value, err := JSON(v)
	if err != nil {
		return err
	}
	return s.SetMany(map[string]*string{key: value})
}

// JSON encodes v for use as a SetMany value.
func JSON(v any) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding setting: %w", err)
	}
	str := string(data)
	return &str, nil
}

func (s *Store) persist(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}
