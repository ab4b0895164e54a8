// Package apkg writes Anki package files: a zip archive holding a schema 11
// collection database, the media files numbered from zero, and a media map
// naming them.
package apkg

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/internal/logging"
	"github.com/mesh-intelligence/ganki/internal/settings"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

const (
	collectionFile = "collection.anki2"
	mediaMapFile   = "media"
)

type mediaFile struct {
	name string
	data []byte
}

// Package accumulates decks and media and serializes them as an .apkg.
// A Package is not safe for concurrent use.
type Package struct {
	cat   *deck.Catalog
	log   *zap.SugaredLogger
	ids   *deck.IDAllocator
	now   func() time.Time
	decks []*deck.Deck
	media []mediaFile
}

// New returns an empty package. Every model in cat is written to the
// collection, used or not.
func New(cat *deck.Catalog, log *zap.SugaredLogger) *Package {
	return &Package{cat: cat, log: logging.OrNop(log), ids: deck.NewIDAllocator(1), now: time.Now}
}

// AddDeck queues a deck for writing.
func (p *Package) AddDeck(d *deck.Deck) {
	p.decks = append(p.decks, d)
}

// AddMedia queues a media file. A second file with the same name replaces
// the first.
func (p *Package) AddMedia(data []byte, name string) error {
	if name == "" {
		return fmt.Errorf("media file name: %w", types.ErrInvalidName)
	}
	for i := range p.media {
		if p.media[i].name == name {
			p.media[i].data = data
			return nil
		}
	}
	p.media = append(p.media, mediaFile{name: name, data: data})
	return nil
}

// WriteToFile writes the package to path, replacing it atomically.
func (p *Package) WriteToFile(ctx context.Context, path string) error {
	var buf bytes.Buffer
	if err := p.Write(ctx, &buf); err != nil {
		return err
	}
	if err := settings.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing package %s: %w", path, err)
	}
	return nil
}

// Write serializes the package to w.
func (p *Package) Write(ctx context.Context, w io.Writer) error {
	dir, err := os.MkdirTemp("", "ganki-apkg-*")
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dbPath := filepath.Join(dir, collectionFile)
	if err := p.buildCollection(ctx, dbPath); err != nil {
		return err
	}
	collection, err := os.ReadFile(dbPath)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := addZipFile(zw, collectionFile, collection); err != nil {
		return err
	}
	index := make(map[string]string, len(p.media))
	for i, m := range p.media {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := strconv.Itoa(i)
		index[key] = m.name
		if err := addZipFile(zw, key, m.data); err != nil {
			return err
		}
	}
	mediaMap, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding media map: %w", err)
	}
	if err := addZipFile(zw, mediaMapFile, mediaMap); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	p.log.Debugw("package written", "decks", len(p.decks), "media", len(p.media))
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (p *Package) buildCollection(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, collectionSchema); err != nil {
		return fmt.Errorf("creating collection schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := p.insertAll(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collection: %w", err)
	}
	return nil
}

func (p *Package) insertAll(ctx context.Context, tx *sql.Tx) error {
	now := p.now()
	mod := now.Unix()
	modMs := now.UnixMilli()

	// Persisted card ids become note ids; reserve them before allocating.
	// Card ids are unique within a namespace only, so an id or guid seen
	// earlier in this package is replaced.
	for _, d := range p.decks {
		if d.ID() > 0 {
			p.ids.Reserve(d.ID())
		}
		for _, n := range d.Notes() {
			if id, ok := n.CardID(); ok {
				p.ids.Reserve(id)
			}
		}
	}

	decks := map[string]colDeck{"1": newDeck(1, "Default", mod)}
	models := make(map[string]colModel)
	if p.cat != nil {
		for _, m := range p.cat.Models() {
			models[strconv.FormatInt(m.ID(), 10)] = encodeModel(m, 1, mod)
		}
	}
	noteStmt, err := tx.PrepareContext(ctx, `INSERT INTO notes
		(id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')`)
	if err != nil {
		return fmt.Errorf("prepare notes: %w", err)
	}
	defer noteStmt.Close()
	cardStmt, err := tx.PrepareContext(ctx, `INSERT INTO cards
		(id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
		VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return fmt.Errorf("prepare cards: %w", err)
	}
	defer cardStmt.Close()

	usedDecks := map[int64]bool{1: true}
	usedNotes := make(map[int64]bool)
	usedGUIDs := make(map[string]bool)

	due := 0
	for _, d := range p.decks {
		did := d.ID()
		if did <= 0 || usedDecks[did] {
			did = p.ids.Next()
		}
		usedDecks[did] = true
		decks[strconv.FormatInt(did, 10)] = newDeck(did, d.Label(), mod)

		for _, n := range d.Notes() {
			if err := ctx.Err(); err != nil {
				return err
			}
			m := n.Model()
			mid := strconv.FormatInt(m.ID(), 10)
			if cm, ok := models[mid]; !ok || cm.Did == 1 {
				models[mid] = encodeModel(m, did, mod)
			}

			nid, ok := n.CardID()
			if !ok || usedNotes[nid] {
				nid = p.ids.Next()
			}
			usedNotes[nid] = true
			guid := n.GUID()
			if usedGUIDs[guid] {
				guid = strconv.FormatInt(did, 10) + ":" + guid
			}
			if usedGUIDs[guid] {
				guid = strconv.FormatInt(did, 10) + ":" + strconv.FormatInt(nid, 10)
			}
			usedGUIDs[guid] = true

			fields := n.Fields()
			sfld := stripHTML(fields[0])
			if _, err := noteStmt.ExecContext(ctx, nid, guid, m.ID(), mod,
				joinTags(n.Tags()), strings.Join(fields, fieldSeparator), sfld, checksum(sfld)); err != nil {
				return fmt.Errorf("inserting note %s: %w", guid, err)
			}

			for _, ord := range generatedCards(m, fields) {
				if _, err := cardStmt.ExecContext(ctx, p.ids.Next(), nid, did, ord, mod, due); err != nil {
					return fmt.Errorf("inserting card for note %s: %w", guid, err)
				}
			}
			due++
		}
	}

	conf, err := json.Marshal(defaultConf())
	if err != nil {
		return fmt.Errorf("encoding conf: %w", err)
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("encoding models: %w", err)
	}
	decksJSON, err := json.Marshal(decks)
	if err != nil {
		return fmt.Errorf("encoding decks: %w", err)
	}
	dconf, err := json.Marshal(map[string]deckConf{"1": defaultDeckConf(mod)})
	if err != nil {
		return fmt.Errorf("encoding deck config: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO col
		(id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		startOfDay(now), modMs, modMs, collectionVersion,
		string(conf), string(modelsJSON), string(decksJSON), string(dconf)); err != nil {
		return fmt.Errorf("inserting collection row: %w", err)
	}
	return nil
}

// generatedCards returns the template ordinals whose requirements the
// fields satisfy.
func generatedCards(m *deck.Model, fields []string) []int {
	present := func(i int) bool { return i < len(fields) && strings.TrimSpace(fields[i]) != "" }
	var ords []int
	for _, r := range m.Requirements() {
		ok := false
		switch r.Kind {
		case "all":
			ok = len(r.Fields) > 0
			for _, f := range r.Fields {
				ok = ok && present(f)
			}
		case "any":
			for _, f := range r.Fields {
				ok = ok || present(f)
			}
		}
		if ok {
			ords = append(ords, r.Template)
		}
	}
	return ords
}

var htmlTag = regexp.MustCompile(`(?s)<[^>]*>`)

func stripHTML(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}

// checksum is the first 32 bits of the SHA-1 of the sort field.
func checksum(sfld string) int64 {
	sum := sha1.Sum([]byte(sfld))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func startOfDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Unix()
}
