package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/pixelprops/internal/domain"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	key TEXT PRIMARY KEY,
	image JSONB NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	object_key TEXT NOT NULL,
	key_prefix TEXT NOT NULL DEFAULT '',
	webhook_url TEXT NOT NULL DEFAULT '',
	imported INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertAsset(ctx context.Context, doc domain.AssetDocument) error {
	imageJSON, err := json.Marshal(doc.Source)
	if err != nil {
		return fmt.Errorf("marshal asset image: %w", err)
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO assets (key, image, width, height, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE
		 SET image = EXCLUDED.image, width = EXCLUDED.width, height = EXCLUDED.height, updated_at = EXCLUDED.updated_at`,
		doc.Key,
		imageJSON,
		doc.Width,
		doc.Height,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, key string) (domain.AssetDocument, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT key, image, width, height, updated_at
		 FROM assets
		 WHERE key = $1`,
		key,
	)

	var (
		doc       domain.AssetDocument
		imageJSON []byte
	)
	if err := row.Scan(&doc.Key, &imageJSON, &doc.Width, &doc.Height, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AssetDocument{}, false, nil
		}
		return domain.AssetDocument{}, false, fmt.Errorf("query asset: %w", err)
	}

	if err := json.Unmarshal(imageJSON, &doc.Source); err != nil {
		return domain.AssetDocument{}, false, fmt.Errorf("unmarshal asset image: %w", err)
	}
	return doc, true, nil
}

func (s *PostgresStore) CreateImport(ctx context.Context, imp domain.Import) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO imports (id, status, object_key, key_prefix, webhook_url, imported, skipped, failed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		imp.ID,
		imp.Status,
		imp.ObjectKey,
		imp.KeyPrefix,
		imp.WebhookURL,
		imp.Summary.Imported,
		imp.Summary.Skipped,
		imp.Summary.Failed,
		imp.CreatedAt,
		imp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetImport(ctx context.Context, id string) (domain.Import, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, status, object_key, key_prefix, webhook_url, imported, skipped, failed, created_at, updated_at
		 FROM imports
		 WHERE id = $1`,
		id,
	)

	var imp domain.Import
	if err := row.Scan(
		&imp.ID,
		&imp.Status,
		&imp.ObjectKey,
		&imp.KeyPrefix,
		&imp.WebhookURL,
		&imp.Summary.Imported,
		&imp.Summary.Skipped,
		&imp.Summary.Failed,
		&imp.CreatedAt,
		&imp.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Import{}, false, nil
		}
		return domain.Import{}, false, fmt.Errorf("query import: %w", err)
	}
	return imp, true, nil
}

func (s *PostgresStore) UpdateImport(ctx context.Context, id, status string, summary domain.ImportSummary) (domain.Import, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE imports
		 SET status = $1, imported = $2, skipped = $3, failed = $4, updated_at = $5
		 WHERE id = $6`,
		status,
		summary.Imported,
		summary.Skipped,
		summary.Failed,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Import{}, fmt.Errorf("update import: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Import{}, ErrImportNotFound
	}

	imp, ok, err := s.GetImport(ctx, id)
	if err != nil {
		return domain.Import{}, err
	}
	if !ok {
		return domain.Import{}, ErrImportNotFound
	}
	return imp, nil
}
