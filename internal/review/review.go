// Package review implements the user's decisions on detected candidates and
// the subscriptions they produce.
package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/merchant"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/store"
)

var (
	// ErrNotPending is returned when acting on a candidate that was already
	// confirmed or ignored.
	ErrNotPending = errors.New("candidate is not pending")
	// ErrDuplicateMerchant is returned when an edit would give a pending
	// candidate the merchant key of another pending candidate.
	ErrDuplicateMerchant = errors.New("another pending candidate already has this merchant")

	errEmptyDisplayName = errors.New("display name cannot be empty")
)

// Service provides candidate review and subscription management for one
// database.
type Service struct {
	db *store.DB
}

// NewService creates a review Service.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// Candidates lists userID's candidates with status, highest confidence
// first. An empty status lists all of them.
func (s *Service) Candidates(ctx context.Context, userID string, status model.CandidateStatus) ([]model.Candidate, error) {
	return s.db.Queries().ListCandidates(ctx, userID, status)
}

// Confirm turns pending candidate id into an active subscription and links
// the two. Both writes commit together.
func (s *Service) Confirm(ctx context.Context, userID string, id int64) (*model.Subscription, error) {
	var sub *model.Subscription
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		c, err := pendingCandidate(ctx, q, userID, id)
		if err != nil {
			return err
		}

		sub = &model.Subscription{
			UserID:      userID,
			Name:        model.Truncate(c.DisplayName, model.MaxSubscriptionLen),
			MerchantKey: c.MerchantKey,
			Amount:      c.AvgAmount,
			Cadence:     c.CadenceGuess,
			NextDueDate: c.NextPredicted,
			Status:      model.SubscriptionActive,
			Notes:       confirmNote(c.Confidence),
		}
		if err := q.InsertSubscription(ctx, sub); err != nil {
			return err
		}

		c.Status = model.CandidateConfirmed
		c.ConfirmedSubscriptionID = sub.ID
		return q.UpdateCandidate(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("confirming candidate %d: %w", id, err)
	}
	return sub, nil
}

// Ignore marks pending candidate id as ignored. Later imports create a
// fresh pending candidate if the merchant keeps recurring.
func (s *Service) Ignore(ctx context.Context, userID string, id int64) error {
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		c, err := pendingCandidate(ctx, q, userID, id)
		if err != nil {
			return err
		}
		c.Status = model.CandidateIgnored
		return q.UpdateCandidate(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("ignoring candidate %d: %w", id, err)
	}
	return nil
}

// DeleteCandidate removes candidate id regardless of status.
func (s *Service) DeleteCandidate(ctx context.Context, userID string, id int64) error {
	if err := s.db.Queries().DeleteCandidate(ctx, userID, id); err != nil {
		return fmt.Errorf("deleting candidate %d: %w", id, err)
	}
	return nil
}

// CandidateEdit lists the candidate fields to change. Nil fields are kept.
type CandidateEdit struct {
	DisplayName *string
	AvgAmount   *decimal.Decimal
	Cadence     *model.Cadence
}

// EditCandidate changes candidate id in any status. A new display name
// re-derives the merchant key so later imports group with it.
func (s *Service) EditCandidate(ctx context.Context, userID string, id int64, e CandidateEdit) (*model.Candidate, error) {
	var c *model.Candidate
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		var err error
		c, err = q.GetCandidate(ctx, userID, id)
		if err != nil {
			return err
		}

		if e.DisplayName != nil {
			name := strings.TrimSpace(*e.DisplayName)
			if name == "" {
				return errEmptyDisplayName
			}
			c.DisplayName = model.Truncate(name, model.MaxDisplayNameLen)
			c.MerchantKey = merchant.Normalize(name)
		}
		if e.AvgAmount != nil {
			amount, err := validAmount(*e.AvgAmount)
			if err != nil {
				return err
			}
			c.AvgAmount = amount
		}
		if e.Cadence != nil {
			cadence, err := model.ParseCadence(string(*e.Cadence))
			if err != nil {
				return err
			}
			c.CadenceGuess = cadence
		}

		err = q.UpdateCandidate(ctx, c)
		if errors.Is(err, store.ErrDuplicatePending) {
			return fmt.Errorf("%w (%s)", ErrDuplicateMerchant, c.MerchantKey)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("editing candidate %d: %w", id, err)
	}
	return c, nil
}

func pendingCandidate(ctx context.Context, q *store.Queries, userID string, id int64) (*model.Candidate, error) {
	c, err := q.GetCandidate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CandidatePending {
		return nil, fmt.Errorf("%w (status %s)", ErrNotPending, c.Status)
	}
	return c, nil
}

func confirmNote(confidence float64) string {
	return fmt.Sprintf("Created from detected recurring candidate (confidence=%s).",
		strconv.FormatFloat(confidence, 'f', -1, 64))
}
