package repomanager

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/server/repositories/documents"
)

// MemoryRepositoryManager serves documents from process memory. Data does
// not survive a restart.
type MemoryRepositoryManager struct {
	repo *documents.MemoryRepository
}

var _ RepositoryManager = (*MemoryRepositoryManager)(nil)

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{repo: documents.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Documents() documents.Repository { return m.repo }

func (m *MemoryRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo documents.Repository) error) error {
	return m.repo.WithinTx(ctx, fn)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryRepositoryManager) Close() error { return nil }
