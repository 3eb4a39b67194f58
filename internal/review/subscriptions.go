package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/merchant"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/store"
)

var (
	errMissingName   = errors.New("name is required")
	errBadAmount     = errors.New("amount must be greater than 0")
	errMissingDueDay = errors.New("next due date is required")
)

// AddParams holds the fields of a manually entered subscription.
type AddParams struct {
	Name        string
	Amount      decimal.Decimal
	Cadence     model.Cadence
	NextDueDate time.Time
	Category    string
	Notes       string
}

// AddSubscription creates an active subscription that did not come from
// detection. The merchant key is derived from the name so later detections
// group with it.
func (s *Service) AddSubscription(ctx context.Context, userID string, p AddParams) (*model.Subscription, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, errMissingName
	}
	amount, err := validAmount(p.Amount)
	if err != nil {
		return nil, err
	}
	cadence, err := model.ParseCadence(string(p.Cadence))
	if err != nil {
		return nil, err
	}
	if p.NextDueDate.IsZero() {
		return nil, errMissingDueDay
	}

	sub := &model.Subscription{
		UserID:      userID,
		Name:        model.Truncate(name, model.MaxSubscriptionLen),
		MerchantKey: merchant.Normalize(name),
		Amount:      amount,
		Cadence:     cadence,
		NextDueDate: p.NextDueDate,
		Category:    strings.TrimSpace(p.Category),
		Status:      model.SubscriptionActive,
		Notes:       strings.TrimSpace(p.Notes),
	}
	if err := s.db.Queries().InsertSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// validAmount rounds d to cents and requires the result to be positive.
func validAmount(d decimal.Decimal) (decimal.Decimal, error) {
	amount := d.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, errBadAmount
	}
	return amount, nil
}

// SubscriptionEdit lists the subscription fields to change. Nil fields are
// kept; an empty Category or Notes clears it.
type SubscriptionEdit struct {
	Name        *string
	Amount      *decimal.Decimal
	Cadence     *model.Cadence
	NextDueDate *time.Time
	Category    *string
	Notes       *string
}

// EditSubscription changes subscription id. A new name re-derives the
// merchant key.
func (s *Service) EditSubscription(ctx context.Context, userID string, id int64, e SubscriptionEdit) (*model.Subscription, error) {
	var sub *model.Subscription
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		var err error
		sub, err = q.GetSubscription(ctx, userID, id)
		if err != nil {
			return err
		}

		if e.Name != nil {
			name := strings.TrimSpace(*e.Name)
			if name == "" {
				return errMissingName
			}
			sub.Name = model.Truncate(name, model.MaxSubscriptionLen)
			sub.MerchantKey = merchant.Normalize(name)
		}
		if e.Amount != nil {
			if sub.Amount, err = validAmount(*e.Amount); err != nil {
				return err
			}
		}
		if e.Cadence != nil {
			if sub.Cadence, err = model.ParseCadence(string(*e.Cadence)); err != nil {
				return err
			}
		}
		if e.NextDueDate != nil {
			if e.NextDueDate.IsZero() {
				return errMissingDueDay
			}
			sub.NextDueDate = *e.NextDueDate
		}
		if e.Category != nil {
			sub.Category = strings.TrimSpace(*e.Category)
		}
		if e.Notes != nil {
			sub.Notes = strings.TrimSpace(*e.Notes)
		}
		return q.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("editing subscription %d: %w", id, err)
	}
	return sub, nil
}

// Subscriptions lists userID's subscriptions, newest first. An empty status
// lists all of them.
func (s *Service) Subscriptions(ctx context.Context, userID string, status model.SubscriptionStatus) ([]model.Subscription, error) {
	return s.db.Queries().ListSubscriptions(ctx, userID, status)
}

// Cancel marks subscription id canceled.
func (s *Service) Cancel(ctx context.Context, userID string, id int64) error {
	if err := s.db.Queries().SetSubscriptionStatus(ctx, userID, id, model.SubscriptionCanceled); err != nil {
		return fmt.Errorf("canceling subscription %d: %w", id, err)
	}
	return nil
}

// Reactivate marks subscription id active again.
func (s *Service) Reactivate(ctx context.Context, userID string, id int64) error {
	if err := s.db.Queries().SetSubscriptionStatus(ctx, userID, id, model.SubscriptionActive); err != nil {
		return fmt.Errorf("reactivating subscription %d: %w", id, err)
	}
	return nil
}

// DeleteSubscription removes subscription id.
func (s *Service) DeleteSubscription(ctx context.Context, userID string, id int64) error {
	if err := s.db.Queries().DeleteSubscription(ctx, userID, id); err != nil {
		return fmt.Errorf("deleting subscription %d: %w", id, err)
	}
	return nil
}

// Restore inserts previously exported subscriptions for userID in one
// transaction. Rows get new IDs; a missing merchant key is derived from the
// name.
func (s *Service) Restore(ctx context.Context, userID string, subs []model.Subscription) (int, error) {
	err := s.db.InTx(ctx, func(q *store.Queries) error {
		for i := range subs {
			sub := subs[i]
			if strings.TrimSpace(sub.Name) == "" {
				return fmt.Errorf("row %d: %w", i+1, errMissingName)
			}
			if !sub.Amount.IsPositive() {
				return fmt.Errorf("row %d: %w", i+1, errBadAmount)
			}
			sub.ID = 0
			sub.UserID = userID
			sub.Name = model.Truncate(strings.TrimSpace(sub.Name), model.MaxSubscriptionLen)
			if sub.MerchantKey == "" {
				sub.MerchantKey = merchant.Normalize(sub.Name)
			}
			if err := q.InsertSubscription(ctx, &sub); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restoring subscriptions: %w", err)
	}
	return len(subs), nil
}
