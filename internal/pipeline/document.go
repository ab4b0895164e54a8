// Package pipeline moves card namespaces in and out of the workspace: the
// .ganki interchange document, package export through a PackageWriter and
// document import.
package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/mesh-intelligence/ganki/internal/registry"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/internal/sqlite"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// DefaultDocumentFile is the file name used when exporting a document
// without an explicit path.
const DefaultDocumentFile = "export.ganki"

// Entry is one namespace in an interchange document.
type Entry struct {
	ID      int64             `json:"id"`
	Label   string            `json:"label"`
	Name    string            `json:"name"`
	Cards   []types.Card      `json:"cards"`
	Parsers map[string]string `json:"parsers"`
}

// Document maps namespace keys to their snapshot.
type Document map[string]Entry

// Namespaces returns the document keys in sorted order.
func (d Document) Namespaces() []string {
	return slices.Sorted(maps.Keys(d))
}

// Skipped records an entry left out of a decode or import.
type Skipped struct {
	Namespace string `json:"namespace"`
	Reason    string `json:"reason"`
}

// EncodeDocument writes doc as JSON indented with four spaces.
func EncodeDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}

// WriteDocument writes doc to path atomically.
func WriteDocument(path string, doc Document) error {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc); err != nil {
		return err
	}
	if err := settings.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing document %s: %w", path, err)
	}
	return nil
}

var requiredKeys = []string{"id", "name", "label", "cards", "parsers"}

// checkKey reports whether ns can be registered as a namespace: a valid
// store name already in the form registry.Sanitize produces.
func checkKey(ns string) error {
	if err := sqlite.ValidNamespace(ns); err != nil {
		return err
	}
	if registry.Sanitize(ns) != ns {
		return fmt.Errorf("namespace %q contains spaces: %w", ns, types.ErrInvalidName)
	}
	return nil
}

// DecodeDocument parses an interchange document. The top level must be a
// JSON object; entries that fail validation are reported in skipped and
// left out of the result. Unknown keys are ignored.
func DecodeDocument(data []byte) (Document, []Skipped, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, types.ErrInvalidDocument)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("document is null: %w", types.ErrInvalidDocument)
	}

	doc := make(Document, len(raw))
	var skipped []Skipped
	for _, ns := range slices.Sorted(maps.Keys(raw)) {
		if err := checkKey(ns); err != nil {
			skipped = append(skipped, Skipped{Namespace: ns, Reason: err.Error()})
			continue
		}
		entry, err := decodeEntry(raw[ns])
		if err != nil {
			skipped = append(skipped, Skipped{Namespace: ns, Reason: err.Error()})
			continue
		}
		doc[ns] = entry
	}
	return doc, skipped, nil
}

func decodeEntry(data json.RawMessage) (Entry, error) {
	var e Entry
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return e, errors.New("entry is not an object")
	}
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			return e, fmt.Errorf("missing key %q", key)
		}
	}

	var id json.Number
	if err := decodeNumber(obj["id"], &id); err != nil {
		return e, fmt.Errorf("id: %v", err)
	}
	n, err := id.Int64()
	if err != nil {
		return e, fmt.Errorf("id %s is not an integer", id)
	}
	e.ID = n

	if err := decodeString(obj["label"], &e.Label); err != nil {
		return e, fmt.Errorf("label: %v", err)
	}
	if err := decodeString(obj["name"], &e.Name); err != nil {
		return e, fmt.Errorf("name: %v", err)
	}

	parsers, err := decodeParsers(obj["parsers"])
	if err != nil {
		return e, fmt.Errorf("parsers: %v", err)
	}
	e.Parsers = parsers

	var cards []json.RawMessage
	if err := json.Unmarshal(obj["cards"], &cards); err != nil || cards == nil {
		return e, errors.New("cards is not an array")
	}
	e.Cards = make([]types.Card, 0, len(cards))
	for i, raw := range cards {
		var c types.Card
		if err := json.Unmarshal(raw, &c); err != nil {
			return e, fmt.Errorf("card %d: %v", i, err)
		}
		if err := c.Validate(); err != nil {
			return e, fmt.Errorf("card %d: %v", i, err)
		}
		e.Cards = append(e.Cards, c)
	}
	return e, nil
}

func decodeNumber(data json.RawMessage, n *json.Number) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	num, ok := v.(json.Number)
	if !ok {
		return fmt.Errorf("expected a number, got %s", jsonKind(v))
	}
	*n = num
	return nil
}

func decodeString(data json.RawMessage, s *string) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %s", jsonKind(v))
	}
	*s = str
	return nil
}

// decodeParsers accepts an object or null. Non-string sources are dropped.
func decodeParsers(data json.RawMessage) (map[string]string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", jsonKind(v))
	}
	out := make(map[string]string, len(obj))
	for name, src := range obj {
		if s, ok := src.(string); ok {
			out[name] = s
		}
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	default:
		return "object"
	}
}
