package store

import (
	"context"
	"errors"

	"github.com/dunamismax/pixelprops/internal/domain"
)

var ErrImportNotFound = errors.New("import not found")

type AssetStore interface {
	UpsertAsset(ctx context.Context, doc domain.AssetDocument) error
	GetAsset(ctx context.Context, key string) (domain.AssetDocument, bool, error)
}

type ImportStore interface {
	CreateImport(ctx context.Context, imp domain.Import) error
	GetImport(ctx context.Context, id string) (domain.Import, bool, error)
	UpdateImport(ctx context.Context, id, status string, summary domain.ImportSummary) (domain.Import, error)
}

type Store interface {
	AssetStore
	ImportStore
	Close() error
}

// Open selects the postgres store when dsn is set and the in-memory store
// otherwise.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(), nil
	}
	pg, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
