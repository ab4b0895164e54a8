package session

import (
	"context"

	"github.com/mesh-intelligence/ganki/internal/apkg"
	"github.com/mesh-intelligence/ganki/internal/deck"
	"github.com/mesh-intelligence/ganki/internal/pipeline"
)

// PackagePath returns the default .apkg path for the configured package name.
func (s *Session) PackagePath() string {
	return s.cfg.PackageName() + ".apkg"
}

// ExportPackage writes the selected namespaces, or all of them, plus the
// packaged media as an Anki package at path. An empty path uses
// PackagePath.
func (s *Session) ExportPackage(ctx context.Context, path string, progress pipeline.Progress, selectors ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.PackagePath()
	}
	return s.detached(ctx, func() error {
		return s.exporter.ExportPackage(ctx, apkg.New(s.cat, s.log), path, progress, selectors...)
	})
}

// ExportDeck writes only the loaded deck as a package named after its
// namespace when path is empty.
func (s *Session) ExportDeck(ctx context.Context, path string, progress pipeline.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	if path == "" {
		path = s.namespace + ".apkg"
	}
	return s.exporter.WritePackage(ctx, apkg.New(s.cat, s.log), path, []*deck.Deck{s.deck}, progress)
}

// ExportDocument writes the selected namespaces, or all of them, as an
// interchange document at path. An empty path uses the default file name.
func (s *Session) ExportDocument(ctx context.Context, path string, progress pipeline.Progress, selectors ...string) (pipeline.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = pipeline.DefaultDocumentFile
	}
	var doc pipeline.Document
	err := s.detached(ctx, func() error {
		var err error
		doc, err = s.exporter.ExportDocument(ctx, path, progress, selectors...)
		return err
	})
	return doc, err
}

// Import reads the interchange document at path into the workspace and
// reloads the session.
func (s *Session) Import(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res *pipeline.Result
	err := s.detached(ctx, func() error {
		var err error
		res, err = s.importer.ImportFile(ctx, path, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
