package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/subscan/internal/model"
)

const subscriptionColumns = `id, user_id, name, merchant_key, amount, cadence, next_due_date, category,
	status, notes, created_at, updated_at`

// InsertSubscription stores sub and fills in its ID and timestamps.
func (s *Queries) InsertSubscription(ctx context.Context, sub *model.Subscription) error {
	now := s.now()
	if sub.Status == "" {
		sub.Status = model.SubscriptionActive
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, name, merchant_key, amount, cadence, next_due_date, category,
			status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.Name, sub.MerchantKey, sub.Amount.StringFixed(2), string(sub.Cadence),
		formatDay(sub.NextDueDate), sub.Category, string(sub.Status), sub.Notes,
		formatStamp(now), formatStamp(now),
	)
	if err != nil {
		return fmt.Errorf("inserting subscription %q: %w", sub.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading subscription id: %w", err)
	}
	sub.ID, sub.CreatedAt, sub.UpdatedAt = id, now, now
	return nil
}

// GetSubscription returns subscription id if it belongs to userID.
func (s *Queries) GetSubscription(ctx context.Context, userID string, id int64) (*model.Subscription, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE user_id = ? AND id = ?`, userID, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription %d: %w", id, err)
	}
	return &sub, nil
}

// ListSubscriptions returns userID's subscriptions, newest first. An empty
// status lists every subscription.
func (s *Queries) ListSubscriptions(ctx context.Context, userID string, status model.SubscriptionStatus) ([]model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// UpdateSubscription overwrites the editable fields and status of sub.
func (s *Queries) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	now := s.now()
	res, err := s.q.ExecContext(ctx, `
		UPDATE subscriptions SET name = ?, merchant_key = ?, amount = ?, cadence = ?, next_due_date = ?,
			category = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		sub.Name, sub.MerchantKey, sub.Amount.StringFixed(2), string(sub.Cadence), formatDay(sub.NextDueDate),
		sub.Category, string(sub.Status), sub.Notes, formatStamp(now), sub.ID, sub.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating subscription %d: %w", sub.ID, err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}
	sub.UpdatedAt = now
	return nil
}

// SetSubscriptionStatus flips subscription id between active and canceled.
func (s *Queries) SetSubscriptionStatus(ctx context.Context, userID string, id int64, status model.SubscriptionStatus) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		string(status), formatStamp(s.now()), userID, id)
	if err != nil {
		return fmt.Errorf("updating subscription %d: %w", id, err)
	}
	return rowsAffectedOrNotFound(res)
}

// DeleteSubscription removes subscription id owned by userID. Candidates
// confirmed into it keep their status and lose the link.
func (s *Queries) DeleteSubscription(ctx context.Context, userID string, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting subscription %d: %w", id, err)
	}
	return rowsAffectedOrNotFound(res)
}

func scanSubscription(sc scanner) (model.Subscription, error) {
	var (
		sub                  model.Subscription
		cadence, status, due string
		created, updated     string
	)
	err := sc.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.MerchantKey, &sub.Amount, &cadence, &due,
		&sub.Category, &status, &sub.Notes, &created, &updated)
	if err != nil {
		return model.Subscription{}, err
	}
	sub.Cadence = model.Cadence(cadence)
	sub.Status = model.SubscriptionStatus(status)

	if sub.NextDueDate, err = parseDay(due); err != nil {
		return model.Subscription{}, err
	}
	if sub.CreatedAt, err = parseStamp(created); err != nil {
		return model.Subscription{}, err
	}
	if sub.UpdatedAt, err = parseStamp(updated); err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}
