package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/subscan/internal/model"
)

// InsertBatch records an import batch. ImportedAt defaults to now.
func (s *Queries) InsertBatch(ctx context.Context, b *model.ImportBatch) error {
	if b.ImportedAt.IsZero() {
		b.ImportedAt = s.now()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO import_batches (id, user_id, filename, imported_at, rows_added, rows_skipped)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Filename, formatStamp(b.ImportedAt), b.RowsAdded, b.RowsSkipped,
	)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}
	return nil
}

// GetBatch returns the batch with id owned by userID.
func (s *Queries) GetBatch(ctx context.Context, userID, id string) (model.ImportBatch, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, filename, imported_at, rows_added, rows_skipped
		FROM import_batches WHERE user_id = ? AND id = ?`, userID, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImportBatch{}, ErrNotFound
	}
	return b, err
}

// ListBatches returns userID's batches, newest first.
func (s *Queries) ListBatches(ctx context.Context, userID string) ([]model.ImportBatch, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, filename, imported_at, rows_added, rows_skipped
		FROM import_batches WHERE user_id = ?
		ORDER BY imported_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var out []model.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (model.ImportBatch, error) {
	var (
		b  model.ImportBatch
		at string
	)
	if err := sc.Scan(&b.ID, &b.UserID, &b.Filename, &at, &b.RowsAdded, &b.RowsSkipped); err != nil {
		return model.ImportBatch{}, err
	}
	t, err := parseStamp(at)
	if err != nil {
		return model.ImportBatch{}, err
	}
	b.ImportedAt = t
	return b, nil
}
