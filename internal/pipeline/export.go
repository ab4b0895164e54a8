package pipeline

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/parser"
	"github.com/mesh-intelligence/ganki/internal/registry"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Connector opens one card namespace for the duration of fn. The pipeline
// visits namespaces strictly one after another.
type Connector interface {
	With(ctx context.Context, namespace string, fn func(types.Store) error) error
}

// MediaSource yields the media flagged for packaging.
type MediaSource interface {
	Packaged(ctx context.Context) ([]*types.Media, error)
}

// PackageWriter is the package serializer the exporter hands decks and
// media to.
type PackageWriter interface {
	AddDeck(d *deck.Deck)
	AddMedia(data []byte, name string) error
	WriteToFile(ctx context.Context, path string) error
}

// Progress receives human-readable status lines. It may be nil.
type Progress func(status string)

func (p Progress) report(format string, args ...any) {
	if p != nil {
		p(fmt.Sprintf(format, args...))
	}
}

// Exporter snapshots namespaces into documents and packages.
type Exporter struct {
	conn    Connector
	decks   *registry.Registry
	parsers *parser.Registry
	media   MediaSource
	cat     *deck.Catalog
	log     *zap.SugaredLogger
}

// NewExporter returns an exporter. media may be nil when only documents are
// exported.
func NewExporter(conn Connector, decks *registry.Registry, parsers *parser.Registry, media MediaSource, cat *deck.Catalog, log *zap.SugaredLogger) *Exporter {
	return &Exporter{conn: conn, decks: decks, parsers: parsers, media: media, cat: cat, log: logging.OrNop(log)}
}

// Collect reads every selected namespace into a document. Selectors are
// namespace keys, deck labels or deck ids; none selects every namespace.
// No card namespace may be open when Collect runs.
func (e *Exporter) Collect(ctx context.Context, progress Progress, selectors ...string) (Document, error) {
	progress.report("Gathering data...")

	namespaces := e.decks.Namespaces()
	if len(selectors) > 0 {
		var err error
		if namespaces, err = e.decks.Resolve(selectors...); err != nil {
			return nil, err
		}
	}

	parsers := e.parsers.All()
	doc := make(Document, len(namespaces))
	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.decks.Lookup(ns)
		if err != nil {
			return nil, err
		}
		progress.report("Getting data for %s", data.Label)

		var cards []types.Card
		err = e.conn.With(ctx, ns, func(s types.Store) error {
			records, err := s.GetAll(ctx)
			if err != nil {
				return err
			}
			cards = make([]types.Card, 0, len(records))
			for _, r := range records {
				c, ok := r.(*types.Card)
				if !ok {
					return fmt.Errorf("unexpected record %T: %w", r, types.ErrInvalidData)
				}
				cards = append(cards, *c)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("reading namespace %q: %w", ns, err)
		}

		doc[ns] = Entry{
			ID:      data.ID,
			Label:   data.Label,
			Name:    ns,
			Cards:   cards,
			Parsers: maps.Clone(parsers),
		}
		e.log.Debugw("collected namespace", "namespace", ns, "cards", len(cards))
	}
	return doc, nil
}

// ExportDocument collects the selected namespaces and writes them to path.
func (e *Exporter) ExportDocument(ctx context.Context, path string, progress Progress, selectors ...string) (Document, error) {
	doc, err := e.Collect(ctx, progress, selectors...)
	if err != nil {
		return nil, err
	}
	if err := WriteDocument(path, doc); err != nil {
		return nil, err
	}
	e.log.Infow("document exported", "path", path, "namespaces", len(doc))
	return doc, nil
}

// BuildDecks converts document entries to decks, in namespace order. Cards
// whose fields do not fit their model are left out with a warning.
func BuildDecks(cat *deck.Catalog, doc Document, log *zap.SugaredLogger) []*deck.Deck {
	log = logging.OrNop(log)
	out := make([]*deck.Deck, 0, len(doc))
	for _, ns := range doc.Namespaces() {
		entry := doc[ns]
		d := deck.New(entry.ID, entry.Label)
		for i := range entry.Cards {
			n, err := deck.FromCard(cat, &entry.Cards[i])
			if err != nil {
				log.Warnw("skipping card", "namespace", ns, "error", err)
				continue
			}
			d.AddNote(n)
		}
		out = append(out, d)
	}
	return out
}

// ExportPackage collects the selected namespaces, adds them and the
// packaged media to w and writes the package to path.
func (e *Exporter) ExportPackage(ctx context.Context, w PackageWriter, path string, progress Progress, selectors ...string) error {
	doc, err := e.Collect(ctx, progress, selectors...)
	if err != nil {
		return err
	}
	return e.WritePackage(ctx, w, path, BuildDecks(e.cat, doc, e.log), progress)
}

// WritePackage adds decks and the packaged media to w and writes it to path.
func (e *Exporter) WritePackage(ctx context.Context, w PackageWriter, path string, decks []*deck.Deck, progress Progress) error {
	progress.report("Creating the package...")
	for _, d := range decks {
		progress.report("Adding the deck %s...", d.Label())
		w.AddDeck(d)
	}

	if e.media != nil {
		progress.report("Getting media")
		media, err := e.media.Packaged(ctx)
		if err != nil {
			return fmt.Errorf("gathering media: %w", err)
		}
		for _, m := range media {
			if !m.Loaded() {
				e.log.Warnw("packaged media has no data", "name", m.Name)
				continue
			}
			progress.report("Adding media %s", m.Name)
			if err := w.AddMedia(m.Data, m.Name); err != nil {
				return err
			}
		}
	}

	progress.report("Saving to file %s...", path)
	if err := w.WriteToFile(ctx, path); err != nil {
		return err
	}
	e.log.Infow("package exported", "path", path, "decks", len(decks))
	return nil
}
