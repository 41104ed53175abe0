// Package tombstones remembers local deletions whose remote counterpart has
// not run yet, so a later retry can replay them.
package tombstones

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/dbx"
	"github.com/dmitrijs2005/phototimeline/internal/timex"
)

type Kind string

const (
	KindRoot  Kind = "root"
	KindEntry Kind = "entry"
)

// Tombstone is a pending remote deletion. RootID is set for entries.
type Tombstone struct {
	ID        string
	Kind      Kind
	RootID    string
	DeletedAt time.Time
}

type Repository interface {
	// Add records t, overwriting an older tombstone for the same id.
	Add(ctx context.Context, t Tombstone) error
	// List returns tombstones oldest first.
	List(ctx context.Context) ([]Tombstone, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, t Tombstone) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tombstones (id, kind, root_id, deleted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, root_id = excluded.root_id, deleted_at = excluded.deleted_at
	`, t.ID, string(t.Kind), t.RootID, timex.UnixNano(t.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to add tombstone: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Tombstone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, kind, root_id, deleted_at FROM tombstones ORDER BY deleted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []Tombstone
	for rows.Next() {
		var (
			t    Tombstone
			kind string
			at   int64
		)
		if err := rows.Scan(&t.ID, &kind, &t.RootID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		t.Kind = Kind(kind)
		t.DeletedAt = timex.FromUnixNano(at)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tombstones: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tombstone: %w", err)
	}
	return nil
}
