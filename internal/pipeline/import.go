package pipeline

import (
	"context"
	"fmt"
	"maps"
	"os"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/parser"
	"github.com/mesh-intelligence/ganki/internal/registry"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Options controls an import.
type Options struct {
	// Replace clears each target namespace before its cards are written.
	Replace bool
}

// Result lists the namespaces written and the entries left out.
type Result struct {
	Imported []string  `json:"imported"`
	Skipped  []Skipped `json:"skipped"`
}

// Importer writes interchange documents into the workspace.
type Importer struct {
	conn    Connector
	decks   *registry.Registry
	parsers *parser.Registry
	log     *zap.SugaredLogger
}

// NewImporter returns an importer.
func NewImporter(conn Connector, decks *registry.Registry, parsers *parser.Registry, log *zap.SugaredLogger) *Importer {
	return &Importer{conn: conn, decks: decks, parsers: parsers, log: logging.OrNop(log)}
}

// ImportFile reads, decodes and imports the document at path.
func (i *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, skipped, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		i.log.Warnw("skipping document entry", "namespace", s.Namespace, "reason", s.Reason)
	}
	res, err := i.Import(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	res.Skipped = append(skipped, res.Skipped...)
	return res, nil
}

// Import writes every entry's cards into its namespace, one namespace at a
// time. An entry whose key is not a valid namespace or whose write fails is skipped and its parsers and registry
// entry are not applied. Parsers of written entries are merged, imported
// sources winning, and the registry is updated in a single write at the
// end. No card namespace may be open when Import runs.
func (i *Importer) Import(ctx context.Context, doc Document, opts Options) (*Result, error) {
	res := &Result{Imported: []string{}, Skipped: []Skipped{}}
	entries := make(map[string]types.DeckData)
	parsers := make(map[string]string)

	for _, ns := range doc.Namespaces() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := checkKey(ns); err != nil {
			res.Skipped = append(res.Skipped, Skipped{Namespace: ns, Reason: err.Error()})
			continue
		}
		entry := doc[ns]
		records := make([]any, len(entry.Cards))
		for j := range entry.Cards {
			records[j] = &entry.Cards[j]
		}

		err := i.conn.With(ctx, ns, func(s types.Store) error {
			if opts.Replace {
				if err := s.Clear(ctx); err != nil {
					return err
				}
			}
			return s.PutMany(ctx, records)
		})
		if err != nil {
			i.log.Warnw("namespace import failed", "namespace", ns, "error", err)
			res.Skipped = append(res.Skipped, Skipped{Namespace: ns, Reason: err.Error()})
			continue
		}

		maps.Copy(parsers, entry.Parsers)
		entries[ns] = types.DeckData{ID: entry.ID, Label: entry.Label}
		res.Imported = append(res.Imported, ns)
		i.log.Infow("namespace imported", "namespace", ns, "cards", len(records), "replace", opts.Replace)
	}

	if err := i.parsers.Merge(parsers); err != nil {
		return nil, fmt.Errorf("merging parsers: %w", err)
	}
	if len(entries) > 0 {
		if err := i.decks.Apply(entries); err != nil {
			return nil, err
		}
	}
	return res, nil
}
