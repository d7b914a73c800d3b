package store

import (
	"context"
	"sync"
	"time"

	"github.com/dunamismax/pixelprops/internal/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	assets  map[string]domain.AssetDocument
	imports map[string]domain.Import
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:  make(map[string]domain.AssetDocument),
		imports: make(map[string]domain.Import),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) UpsertAsset(_ context.Context, doc domain.AssetDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	s.assets[doc.Key] = doc
	return nil
}

func (s *MemoryStore) GetAsset(_ context.Context, key string) (domain.AssetDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.assets[key]
	return doc, ok, nil
}

func (s *MemoryStore) CreateImport(_ context.Context, imp domain.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports[imp.ID] = imp
	return nil
}

func (s *MemoryStore) GetImport(_ context.Context, id string) (domain.Import, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	imp, ok := s.imports[id]
	return imp, ok, nil
}

func (s *MemoryStore) UpdateImport(_ context.Context, id, status string, summary domain.ImportSummary) (domain.Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imp, ok := s.imports[id]
	if !ok {
		return domain.Import{}, ErrImportNotFound
	}

	imp.Status = status
	imp.Summary = summary
	imp.UpdatedAt = time.Now().UTC()
	s.imports[id] = imp
	return imp, nil
}
