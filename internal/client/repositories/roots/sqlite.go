package roots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/dbx"
	"github.com/dmitrijs2005/phototimeline/internal/timex"
)

const rootColumns = `id, title, creation_date, last_modified_date, number_of_countries, number_of_entries, sync_state`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, root *models.JournalRoot) error {
	query := `INSERT INTO journal_roots (` + rootColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		root.ID, root.Title,
		timex.UnixNano(root.CreationDate), timex.UnixNano(root.LastModifiedDate),
		root.NumberOfCountries, root.NumberOfEntries, int(root.SyncState))
	if err != nil {
		return fmt.Errorf("failed to insert root: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoot(s scanner) (models.JournalRoot, error) {
	var (
		root              models.JournalRoot
		created, modified int64
		state             int
	)
	err := s.Scan(&root.ID, &root.Title, &created, &modified, &root.NumberOfCountries, &root.NumberOfEntries, &state)
	if err != nil {
		return root, err
	}
	root.CreationDate = timex.FromUnixNano(created)
	root.LastModifiedDate = timex.FromUnixNano(modified)
	root.SyncState = models.SyncState(state)
	return root, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.JournalRoot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rootColumns+` FROM journal_roots WHERE id = ?`, id)
	root, err := scanRoot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get root: %w", err)
	}
	return &root, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.JournalRoot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+rootColumns+` FROM journal_roots ORDER BY creation_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select roots: %w", err)
	}
	defer rows.Close()

	var result []models.JournalRoot
	for rows.Next() {
		root, err := scanRoot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		result = append(result, root)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roots: %w", err)
	}
	return result, nil
}

// patchColumns maps the remote field names of a RootPatch to columns so
// both sides touch the same set of fields.
var patchColumns = map[string]string{
	models.FieldTitle:             "title",
	models.FieldLastModifiedDate:  "last_modified_date",
	models.FieldNumberOfCountries: "number_of_countries",
	models.FieldNumberOfEntries:   "number_of_entries",
}

// Update writes the non-nil members of patch. An empty patch only checks
// that the root exists.
func (r *SQLiteRepository) Update(ctx context.Context, id string, patch models.RootPatch) error {
	if patch.IsEmpty() {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM journal_roots WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check root: %w", err)
		}
		return nil
	}

	var (
		sets []string
		args []any
	)
	for field, value := range patch.Fields() {
		column, ok := patchColumns[field]
		if !ok {
			return fmt.Errorf("unmapped root field %q", field)
		}
		if field == models.FieldLastModifiedDate {
			value = timex.UnixNano(*patch.LastModifiedDate)
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.SyncState != nil {
		sets = append(sets, "sync_state = ?")
		args = append(args, int(*patch.SyncState))
	}

	query := `UPDATE journal_roots SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update root: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_roots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete root: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
}
