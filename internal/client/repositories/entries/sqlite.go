package entries

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

const entryColumns = `id, root_id, description_text, creation_date, last_modified_date,
	location_name, location_latitude, location_longitude, location_region_id, sync_state`

// SQLiteRepository implements Repository over a DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.JournalEntry, position int) error {
	query := `INSERT INTO journal_entries (` + entryColumns + `, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.RootID, e.DescriptionText,
		timex.UnixNano(e.CreationDate), timex.UnixNano(e.LastModifiedDate),
		e.Location.Name, e.Location.Latitude, e.Location.Longitude, e.Location.RegionID,
		int(e.SyncState), position)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	for i, p := range e.Photos {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO entry_photos (entry_id, position, full_name, thumb_name) VALUES (?, ?, ?, ?)`,
			e.ID, i, p.FullName, p.ThumbName)
		if err != nil {
			return fmt.Errorf("failed to insert photo %d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Locate(ctx context.Context, rootID, entryID string) (int, error) {
	var position int
	err := r.db.QueryRowContext(ctx,
		`SELECT position FROM journal_entries WHERE root_id = ? AND id = ?`, rootID, entryID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to locate entry: %w", err)
	}
	return position, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.JournalEntry, error) {
	var (
		e                 models.JournalEntry
		created, modified int64
		state             int
	)
	err := s.Scan(&e.ID, &e.RootID, &e.DescriptionText, &created, &modified,
		&e.Location.Name, &e.Location.Latitude, &e.Location.Longitude, &e.Location.RegionID, &state)
	if err != nil {
		return e, err
	}
	e.CreationDate = timex.FromUnixNano(created)
	e.LastModifiedDate = timex.FromUnixNano(modified)
	e.SyncState = models.SyncState(state)
	return e, nil
}

// selectEntries runs query and fully drains the rows before returning, so
// the connection is free for the photo query that follows.
func (r *SQLiteRepository) selectEntries(ctx context.Context, query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) selectPhotos(ctx context.Context, query string, args ...any) (map[string][]models.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.Photo)
	for rows.Next() {
		var (
			entryID string
			p       models.Photo
		)
		if err := rows.Scan(&entryID, &p.FullName, &p.ThumbName); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		result[entryID] = append(result[entryID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return result, nil
}

func attachPhotos(list []models.JournalEntry, photos map[string][]models.Photo) {
	for i := range list {
		list[i].Photos = photos[list[i].ID]
	}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.JournalEntry, error) {
	list, err := r.selectEntries(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrNotFound
	}

	photos, err := r.selectPhotos(ctx,
		`SELECT entry_id, full_name, thumb_name FROM entry_photos WHERE entry_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	attachPhotos(list, photos)
	return &list[0], nil
}

func (r *SQLiteRepository) ListByRoot(ctx context.Context, rootID string) ([]models.JournalEntry, error) {
	list, err := r.selectEntries(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE root_id = ? ORDER BY position`, rootID)
	if err != nil || len(list) == 0 {
		return list, err
	}

	photos, err := r.selectPhotos(ctx, `
		SELECT p.entry_id, p.full_name, p.thumb_name
		FROM entry_photos p JOIN journal_entries e ON e.id = p.entry_id
		WHERE e.root_id = ?
		ORDER BY p.entry_id, p.position`, rootID)
	if err != nil {
		return nil, err
	}
	attachPhotos(list, photos)
	return list, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.JournalEntry, error) {
	list, err := r.selectEntries(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE sync_state <> ? ORDER BY root_id, position`,
		int(models.SyncSynced))
	if err != nil || len(list) == 0 {
		return list, err
	}

	photos, err := r.selectPhotos(ctx, `
		SELECT p.entry_id, p.full_name, p.thumb_name
		FROM entry_photos p JOIN journal_entries e ON e.id = p.entry_id
		WHERE e.sync_state <> ?
		ORDER BY p.entry_id, p.position`, int(models.SyncSynced))
	if err != nil {
		return nil, err
	}
	attachPhotos(list, photos)
	return list, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, rootID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries WHERE root_id = ?`, rootID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entry_photos WHERE entry_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByRoot(ctx context.Context, rootID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM entry_photos WHERE entry_id IN (SELECT id FROM journal_entries WHERE root_id = ?)`, rootID)
	if err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE root_id = ?`, rootID); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Compact(ctx context.Context, rootID string, position int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE journal_entries SET position = position - 1 WHERE root_id = ? AND position > ?`, rootID, position)
	if err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p models.EntryPatch) error {
	if p.IsEmpty() {
		_, err := r.Get(ctx, id)
		return err
	}

	var (
		sets []string
		args []any
	)
	if p.DescriptionText != nil {
		sets = append(sets, "description_text = ?")
		args = append(args, *p.DescriptionText)
	}
	if p.LastModifiedDate != nil {
		sets = append(sets, "last_modified_date = ?")
		args = append(args, timex.UnixNano(*p.LastModifiedDate))
	}
	if p.Location != nil {
		sets = append(sets, "location_name = ?", "location_latitude = ?", "location_longitude = ?", "location_region_id = ?")
		args = append(args, p.Location.Name, p.Location.Latitude, p.Location.Longitude, p.Location.RegionID)
	}
	if p.SyncState != nil {
		sets = append(sets, "sync_state = ?")
		args = append(args, int(*p.SyncState))
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE journal_entries SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Rollup(ctx context.Context, rootID string) (models.Rollup, error) {
	var out models.Rollup
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN location_latitude <> 0 AND location_longitude <> 0 THEN 1 ELSE 0 END), 0)
		FROM journal_entries WHERE root_id = ?`, rootID).Scan(&out.Entries, &out.Countries)
	if err != nil {
		return models.Rollup{}, fmt.Errorf("failed to compute rollup: %w", err)
	}
	return out, nil
}
