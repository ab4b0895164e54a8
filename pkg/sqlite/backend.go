// Package sqlite exposes the SQLite namespace stores to library users.
//
//	db, err := sqlite.Open(ctx, "/path/to/data", "kanjiguess")
//	if err != nil { ... }
//	defer db.Detach()
//	cards, _ := db.Store(types.CardsStore)
package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ganki/internal/sqlite"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

// Open returns the attached card database of namespace under dataDir.
func Open(ctx context.Context, dataDir, namespace string, log *zap.SugaredLogger) (types.Database, error) {
	if err := sqlite.ValidNamespace(namespace); err != nil {
		return nil, err
	}
	b := sqlite.NewCardBackend(dataDir, namespace, log)
	if err := b.Attach(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenMedia returns the attached shared media database under dataDir.
func OpenMedia(ctx context.Context, dataDir string, log *zap.SugaredLogger) (types.Database, error) {
	b := sqlite.NewMediaBackend(dataDir, log)
	if err := b.Attach(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
