package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/subscan/internal/model"
)

const candidateColumns = `id, user_id, merchant_key, display_name, avg_amount, cadence_guess, confidence,
	last_seen, next_predicted, status, confirmed_subscription_id, created_at, updated_at`

// FindPending returns the pending candidate for userID and merchantKey, or
// ErrNotFound.
func (s *Queries) FindPending(ctx context.Context, userID, merchantKey string) (*model.Candidate, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+candidateColumns+`
		FROM candidates WHERE user_id = ? AND merchant_key = ? AND status = 'pending'`,
		userID, merchantKey)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding pending candidate: %w", err)
	}
	return &c, nil
}

// GetCandidate returns candidate id if it belongs to userID.
func (s *Queries) GetCandidate(ctx context.Context, userID string, id int64) (*model.Candidate, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+candidateColumns+`
		FROM candidates WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting candidate %d: %w", id, err)
	}
	return &c, nil
}

// ListCandidates returns userID's candidates, highest confidence first. An
// empty status lists every candidate.
func (s *Queries) ListCandidates(ctx context.Context, userID string, status model.CandidateStatus) ([]model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY confidence DESC, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCandidate stores c and returns its ID. A second pending candidate
// for the same user and merchant key fails with ErrDuplicatePending.
func (s *Queries) InsertCandidate(ctx context.Context, c *model.Candidate) (int64, error) {
	now := s.now()
	if c.Status == "" {
		c.Status = model.CandidatePending
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO candidates (user_id, merchant_key, display_name, avg_amount, cadence_guess, confidence,
			last_seen, next_predicted, status, confirmed_subscription_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.MerchantKey, c.DisplayName, c.AvgAmount.StringFixed(2), string(c.CadenceGuess), c.Confidence,
		formatDay(c.LastSeen), formatDay(c.NextPredicted), string(c.Status), nullID(c.ConfirmedSubscriptionID),
		formatStamp(now), formatStamp(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicatePending
		}
		return 0, fmt.Errorf("inserting candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading candidate id: %w", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	return id, nil
}

// UpdateCandidate overwrites the merchant, detection fields and status of c.
// Moving a pending candidate onto a merchant key that already has a pending
// row fails with ErrDuplicatePending.
func (s *Queries) UpdateCandidate(ctx context.Context, c *model.Candidate) error {
	now := s.now()
	res, err := s.q.ExecContext(ctx, `
		UPDATE candidates SET merchant_key = ?, display_name = ?, avg_amount = ?, cadence_guess = ?,
			confidence = ?, last_seen = ?, next_predicted = ?, status = ?, confirmed_subscription_id = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.MerchantKey, c.DisplayName, c.AvgAmount.StringFixed(2), string(c.CadenceGuess), c.Confidence,
		formatDay(c.LastSeen), formatDay(c.NextPredicted), string(c.Status), nullID(c.ConfirmedSubscriptionID),
		formatStamp(now), c.ID, c.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("updating candidate %d: %w", c.ID, err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCandidate removes candidate id owned by userID.
func (s *Queries) DeleteCandidate(ctx context.Context, userID string, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM candidates WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting candidate %d: %w", id, err)
	}
	return rowsAffectedOrNotFound(res)
}

func scanCandidate(sc scanner) (model.Candidate, error) {
	var (
		c                       model.Candidate
		cadence, status         string
		lastSeen, next          string
		created, updated        string
		confirmedSubscriptionID sql.NullInt64
	)
	err := sc.Scan(&c.ID, &c.UserID, &c.MerchantKey, &c.DisplayName, &c.AvgAmount, &cadence, &c.Confidence,
		&lastSeen, &next, &status, &confirmedSubscriptionID, &created, &updated)
	if err != nil {
		return model.Candidate{}, err
	}
	c.CadenceGuess = model.Cadence(cadence)
	c.Status = model.CandidateStatus(status)
	c.ConfirmedSubscriptionID = confirmedSubscriptionID.Int64

	if c.LastSeen, err = parseDay(lastSeen); err != nil {
		return model.Candidate{}, err
	}
	if c.NextPredicted, err = parseDay(next); err != nil {
		return model.Candidate{}, err
	}
	if c.CreatedAt, err = parseStamp(created); err != nil {
		return model.Candidate{}, err
	}
	if c.UpdatedAt, err = parseStamp(updated); err != nil {
		return model.Candidate{}, err
	}
	return c, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
