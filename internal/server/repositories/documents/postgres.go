package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/dbx"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
)

// PostgresRepository keeps documents in a JSONB column over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, owner, collection, id string) (remote.Document, error) {
	query := `SELECT fields FROM documents WHERE owner = $1 AND collection = $2 AND id = $3`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, owner, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Document{}, fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	if err != nil {
		return remote.Document{}, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return remote.Document{}, err
	}
	return remote.Document{ID: id, Fields: fields}, nil
}

// Find uses JSONB containment so the GIN index on fields serves it.
func (r *PostgresRepository) Find(ctx context.Context, owner, collection, field string, value any) ([]remote.Document, error) {
	probe, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("%w: query value: %v", common.ErrBadRequest, err)
	}
	query := `
		SELECT id, fields FROM documents
		WHERE owner = $1 AND collection = $2 AND fields @> $3::jsonb
		ORDER BY id COLLATE "C"
	`
	return r.selectDocuments(ctx, query, owner, collection, string(probe))
}

func (r *PostgresRepository) List(ctx context.Context, owner, collection string) ([]remote.Document, error) {
	query := `
		SELECT id, fields FROM documents
		WHERE owner = $1 AND collection = $2
		ORDER BY id COLLATE "C"
	`
	return r.selectDocuments(ctx, query, owner, collection)
}

func (r *PostgresRepository) selectDocuments(ctx context.Context, query string, args ...any) ([]remote.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []remote.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, remote.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Put(ctx context.Context, owner, collection, id string, fields remote.Fields) error {
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO documents (owner, collection, id, fields, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		ON CONFLICT (owner, collection, id)
		DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, owner, collection, id, raw); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Merge(ctx context.Context, owner, collection, id string, fields remote.Fields) error {
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	query := `
		UPDATE documents SET fields = fields || $4::jsonb, updated_at = now()
		WHERE owner = $1 AND collection = $2 AND id = $3
	`
	res, err := r.db.ExecContext(ctx, query, owner, collection, id, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, owner, collection, id string) error {
	query := `DELETE FROM documents WHERE owner = $1 AND collection = $2 AND id = $3`
	if _, err := r.db.ExecContext(ctx, query, owner, collection, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func encodeFields(fields remote.Fields) (string, error) {
	if fields == nil {
		fields = remote.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported field value: %v", common.ErrBadRequest, err)
	}
	return string(b), nil
}

func decodeFields(raw []byte) (remote.Fields, error) {
	fields := remote.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("corrupt document: %w", err)
	}
	return fields, nil
}
