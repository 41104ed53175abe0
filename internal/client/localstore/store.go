// Package localstore is the transactional local store of the journal
// hierarchy. Every mutating call runs inside one SQLite transaction: it
// either commits entirely or leaves no trace, and failures surface as
// *common.StoreError.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/entries"
	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/roots"
	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/tombstones"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/dbx"
)

// Store composes the roots and entries repositories. Children are only
// ever addressed by identity; positions are derived data.
type Store struct {
	db *sql.DB

	roots      func(dbx.DBTX) roots.Repository
	entries    func(dbx.DBTX) entries.Repository
	tombstones func(dbx.DBTX) tombstones.Repository
}

// New returns a Store over db, which should come from storage.InitDatabase.
func New(db *sql.DB) *Store {
	return &Store{
		db:         db,
		roots:      func(tx dbx.DBTX) roots.Repository { return roots.NewSQLiteRepository(tx) },
		entries:    func(tx dbx.DBTX) entries.Repository { return entries.NewSQLiteRepository(tx) },
		tombstones: func(tx dbx.DBTX) tombstones.Repository { return tombstones.NewSQLiteRepository(tx) },
	}
}

func (s *Store) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return common.NewStoreError(op, dbx.WithTx(ctx, s.db, nil, fn))
}

// ListRoots returns every root with its entries, roots in creation order and
// entries in position order.
func (s *Store) ListRoots(ctx context.Context) ([]models.JournalRoot, error) {
	var result []models.JournalRoot
	err := s.inTx(ctx, "list roots", func(ctx context.Context, tx dbx.DBTX) error {
		list, err := s.roots(tx).List(ctx)
		if err != nil {
			return err
		}
		er := s.entries(tx)
		for i := range list {
			if list[i].Entries, err = er.ListByRoot(ctx, list[i].ID); err != nil {
				return err
			}
		}
		result = list
		return nil
	})
	return result, err
}

// GetRoot returns one root with its entries. A missing root is reported as
// a StoreError wrapping common.ErrNotFound.
func (s *Store) GetRoot(ctx context.Context, id string) (*models.JournalRoot, error) {
	var result *models.JournalRoot
	err := s.inTx(ctx, "get root", func(ctx context.Context, tx dbx.DBTX) error {
		root, err := s.roots(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		if root.Entries, err = s.entries(tx).ListByRoot(ctx, id); err != nil {
			return err
		}
		result = root
		return nil
	})
	return result, err
}

// GetEntry returns a single entry with its photos.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.JournalEntry, error) {
	var result *models.JournalEntry
	err := s.inTx(ctx, "get entry", func(ctx context.Context, tx dbx.DBTX) error {
		e, err := s.entries(tx).Get(ctx, id)
		result = e
		return err
	})
	return result, err
}

// CreateRoot stores root and any entries it already carries, in order.
func (s *Store) CreateRoot(ctx context.Context, root *models.JournalRoot) error {
	return s.inTx(ctx, "create root", func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.roots(tx).Create(ctx, root); err != nil {
			return err
		}
		er := s.entries(tx)
		for i := range root.Entries {
			e := root.Entries[i]
			e.RootID = root.ID
			if err := er.Insert(ctx, &e, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRoot removes the root, its entries and their photo rows.
func (s *Store) DeleteRoot(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete root", func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.entries(tx).DeleteByRoot(ctx, id); err != nil {
			return err
		}
		return s.roots(tx).Delete(ctx, id)
	})
}

// PutRoot replaces the root and all its entries with root, creating it if
// absent. Used when pulling a root from the remote store.
func (s *Store) PutRoot(ctx context.Context, root *models.JournalRoot) error {
	return s.inTx(ctx, "put root", func(ctx context.Context, tx dbx.DBTX) error {
		rr, er := s.roots(tx), s.entries(tx)
		if err := er.DeleteByRoot(ctx, root.ID); err != nil {
			return err
		}
		if err := rr.Delete(ctx, root.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if err := rr.Create(ctx, root); err != nil {
			return err
		}
		for i := range root.Entries {
			e := root.Entries[i]
			e.RootID = root.ID
			if err := er.Insert(ctx, &e, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// MutateRootFields applies the non-nil fields of patch and leaves the rest
// untouched.
func (s *Store) MutateRootFields(ctx context.Context, id string, patch models.RootPatch) error {
	return s.inTx(ctx, "mutate root", func(ctx context.Context, tx dbx.DBTX) error {
		return s.roots(tx).Update(ctx, id, patch)
	})
}

// MutateEntryFields is MutateRootFields for an entry's scalar fields.
func (s *Store) MutateEntryFields(ctx context.Context, id string, patch models.EntryPatch) error {
	return s.inTx(ctx, "mutate entry", func(ctx context.Context, tx dbx.DBTX) error {
		return s.entries(tx).Update(ctx, id, patch)
	})
}

// AppendChild adds entry as the last child of rootID and returns its index.
// It fails with common.ErrAdd if the entry cannot be located afterwards.
func (s *Store) AppendChild(ctx context.Context, rootID string, entry *models.JournalEntry) (int, error) {
	idx, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (int, error) {
		if _, err := s.roots(tx).Get(ctx, rootID); err != nil {
			return 0, err
		}

		er := s.entries(tx)
		n, err := er.Count(ctx, rootID)
		if err != nil {
			return 0, err
		}

		e := *entry
		e.RootID = rootID
		if err := er.Insert(ctx, &e, n); err != nil {
			return 0, err
		}

		pos, err := er.Locate(ctx, rootID, e.ID)
		if errors.Is(err, common.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", common.ErrAdd, e.ID)
		}
		return pos, err
	})
	if err != nil {
		return 0, common.NewStoreError("append child", err)
	}
	entry.RootID = rootID
	return idx, nil
}

// RemoveChild deletes entryID from rootID and compacts the positions of
// later siblings. It fails with common.ErrInvalidated if the entry is no
// longer a child of the root.
func (s *Store) RemoveChild(ctx context.Context, rootID, entryID string) error {
	return s.inTx(ctx, "remove child", func(ctx context.Context, tx dbx.DBTX) error {
		er := s.entries(tx)
		pos, err := er.Locate(ctx, rootID, entryID)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: %s", common.ErrInvalidated, entryID)
		}
		if err != nil {
			return err
		}
		if err := er.Delete(ctx, entryID); err != nil {
			return err
		}
		return er.Compact(ctx, rootID, pos)
	})
}

// ReplaceChild swaps the child identified by oldID for newEntry at the same
// position, photos included. If oldID is not a child of rootID it returns
// false with an error wrapping common.ErrReplace and changes nothing.
func (s *Store) ReplaceChild(ctx context.Context, rootID, oldID string, newEntry *models.JournalEntry) (bool, error) {
	err := s.inTx(ctx, "replace child", func(ctx context.Context, tx dbx.DBTX) error {
		er := s.entries(tx)
		pos, err := er.Locate(ctx, rootID, oldID)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: %s", common.ErrReplace, oldID)
		}
		if err != nil {
			return err
		}
		if err := er.Delete(ctx, oldID); err != nil {
			return err
		}

		e := *newEntry
		e.RootID = rootID
		return er.Insert(ctx, &e, pos)
	})
	if err != nil {
		return false, err
	}
	newEntry.RootID = rootID
	return true, nil
}

// Rollup computes the roll-up values of rootID from its current entries.
func (s *Store) Rollup(ctx context.Context, rootID string) (models.Rollup, error) {
	r, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (models.Rollup, error) {
		return s.entries(tx).Rollup(ctx, rootID)
	})
	return r, common.NewStoreError("rollup", err)
}

// PendingEntries returns entries whose last change has not reached the
// remote store.
func (s *Store) PendingEntries(ctx context.Context) ([]models.JournalEntry, error) {
	var result []models.JournalEntry
	err := s.inTx(ctx, "pending entries", func(ctx context.Context, tx dbx.DBTX) error {
		list, err := s.entries(tx).ListPending(ctx)
		result = list
		return err
	})
	return result, err
}

// AddTombstone records a deletion the remote store has not seen yet.
func (s *Store) AddTombstone(ctx context.Context, t tombstones.Tombstone) error {
	return s.inTx(ctx, "add tombstone", func(ctx context.Context, tx dbx.DBTX) error {
		return s.tombstones(tx).Add(ctx, t)
	})
}

func (s *Store) Tombstones(ctx context.Context) ([]tombstones.Tombstone, error) {
	var result []tombstones.Tombstone
	err := s.inTx(ctx, "list tombstones", func(ctx context.Context, tx dbx.DBTX) error {
		list, err := s.tombstones(tx).List(ctx)
		result = list
		return err
	})
	return result, err
}

func (s *Store) ClearTombstone(ctx context.Context, id string) error {
	return s.inTx(ctx, "clear tombstone", func(ctx context.Context, tx dbx.DBTX) error {
		return s.tombstones(tx).Delete(ctx, id)
	})
}
