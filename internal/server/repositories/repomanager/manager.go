package repomanager

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/server/repositories/documents"
)

// RepositoryManager vends the document repository of one storage backend
// and owns its lifecycle.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Documents() documents.Repository
	// WithinTx runs fn with a repository whose writes commit together
	// when fn returns nil and are discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo documents.Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
