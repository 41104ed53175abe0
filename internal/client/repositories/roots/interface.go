// Package roots persists journal roots in the local SQLite database.
//
// Roots are stored without their entries; the entries repository owns the
// child rows and the localstore package composes both inside a transaction.
package roots

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
)

type Repository interface {
	// Create inserts a new root. Entries on the value are ignored.
	Create(ctx context.Context, root *models.JournalRoot) error

	// Get returns common.ErrNotFound when no root has the id.
	Get(ctx context.Context, id string) (*models.JournalRoot, error)

	// List returns all roots ordered by creation date.
	List(ctx context.Context) ([]models.JournalRoot, error)

	// Update applies the non-nil fields of patch. An empty patch only checks
	// that the root exists.
	Update(ctx context.Context, id string, patch models.RootPatch) error

	// Delete removes the root row. It returns common.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
