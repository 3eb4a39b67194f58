package store

import (
	"context"
	"fmt"

	"github.com/cleared-dev/subscan/internal/model"
)

// InsertTransactions stores txns and fills in their IDs.
func (s *Queries) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	for i := range txns {
		t := &txns[i]
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO transactions (user_id, batch_id, txn_date, merchant_raw, merchant_key, amount, include_in_detection)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.BatchID, formatDay(t.Date), t.MerchantRaw, t.MerchantKey, t.Amount.StringFixed(2), t.IncludeInDetection,
		)
		if err != nil {
			return fmt.Errorf("inserting transaction %q: %w", t.MerchantRaw, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading transaction id: %w", err)
		}
		t.ID = id
	}
	return nil
}

// ListTransactions returns userID's transactions ordered by date. A
// non-empty batchID restricts the result to one batch.
func (s *Queries) ListTransactions(ctx context.Context, userID, batchID string) ([]model.Transaction, error) {
	query := `
		SELECT id, user_id, batch_id, txn_date, merchant_raw, merchant_key, amount, include_in_detection
		FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if batchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY txn_date, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t    model.Transaction
			date string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.BatchID, &date, &t.MerchantRaw, &t.MerchantKey, &t.Amount, &t.IncludeInDetection); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Date, err = parseDay(date); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
