package entries

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
)

// Repository describes storage of entries and their photos.
type Repository interface {
	// Insert stores entry under entry.RootID at position, including photos.
	Insert(ctx context.Context, entry *models.JournalEntry, position int) error

	// Locate returns the position of entryID under rootID or
	// common.ErrNotFound if the root does not contain it.
	Locate(ctx context.Context, rootID, entryID string) (int, error)

	// Get returns the entry with its photos, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.JournalEntry, error)

	// ListByRoot returns the root's entries in position order.
	ListByRoot(ctx context.Context, rootID string) ([]models.JournalEntry, error)

	// ListPending returns entries whose sync state is not Synced.
	ListPending(ctx context.Context) ([]models.JournalEntry, error)

	// Count returns how many entries the root holds.
	Count(ctx context.Context, rootID string) (int, error)

	// Delete removes an entry and its photo rows. Returns common.ErrNotFound
	// if it does not exist.
	Delete(ctx context.Context, id string) error

	// DeleteByRoot removes every entry of the root and their photo rows.
	DeleteByRoot(ctx context.Context, rootID string) error

	// Compact closes the gap left at position by a removed sibling.
	Compact(ctx context.Context, rootID string, position int) error

	// Update applies the non-nil fields of patch.
	Update(ctx context.Context, id string, patch models.EntryPatch) error

	// Rollup computes the roll-up values of a root from its entries.
	Rollup(ctx context.Context, rootID string) (models.Rollup, error)
}
