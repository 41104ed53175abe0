// Package documents stores the schemaless documents of the document service,
// keyed by owner, collection and id.
package documents

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/remote"
)

// Repository is the per-table document access used by the service layer.
// Missing documents are reported with an error wrapping common.ErrNotFound.
type Repository interface {
	Get(ctx context.Context, owner, collection, id string) (remote.Document, error)
	// Find returns the documents whose field equals value, ordered by id.
	Find(ctx context.Context, owner, collection, field string, value any) ([]remote.Document, error)
	List(ctx context.Context, owner, collection string) ([]remote.Document, error)
	// Put overwrites the whole document.
	Put(ctx context.Context, owner, collection, id string, fields remote.Fields) error
	// Merge overlays fields onto an existing document.
	Merge(ctx context.Context, owner, collection, id string, fields remote.Fields) error
	Delete(ctx context.Context, owner, collection, id string) error
}
