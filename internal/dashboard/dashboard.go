// Package dashboard summarizes a user's active subscriptions.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/store"
)

// DefaultUpcomingDays is the default window for upcoming charges.
const DefaultUpcomingDays = 30

// TopCount is how many subscriptions Summary.Top holds.
const TopCount = 5

// WeeksPerMonth converts weekly amounts to monthly equivalents. 52/12 is a
// budgeting approximation and drifts slightly from calendar months.
var WeeksPerMonth = decimal.NewFromInt(52).Div(decimal.NewFromInt(12))

var (
	three  = decimal.NewFromInt(3)
	twelve = decimal.NewFromInt(12)
)

// Upcoming is a charge due inside the upcoming window.
type Upcoming struct {
	SubscriptionID int64
	Name           string
	Amount         decimal.Decimal
	DueDate        time.Time
	Cadence        model.Cadence
}

// Summary is the dashboard for one user.
type Summary struct {
	ActiveCount  int
	MonthlyTotal decimal.Decimal
	AnnualTotal  decimal.Decimal
	Upcoming     []Upcoming
	Top          []model.Subscription // by nominal amount, not monthly equivalent
}

// MonthlyEquivalent converts amount billed every cadence into a monthly
// cost. Unknown cadences count as monthly.
func MonthlyEquivalent(amount decimal.Decimal, c model.Cadence) decimal.Decimal {
	switch c {
	case model.CadenceWeekly:
		return amount.Mul(WeeksPerMonth)
	case model.CadenceQuarterly:
		return amount.Div(three)
	case model.CadenceYearly:
		return amount.Div(twelve)
	default:
		return amount
	}
}

// Compute builds the summary of subs as of today. Only active subscriptions
// count. A charge is upcoming when its due date falls in
// [today, today+windowDays]. Totals are rounded to cents.
func Compute(subs []model.Subscription, today time.Time, windowDays int) Summary {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, windowDays)

	var (
		sum     Summary
		monthly = decimal.Zero
		annual  = decimal.Zero
		active  []model.Subscription
	)
	for _, s := range subs {
		if s.Status != model.SubscriptionActive {
			continue
		}
		active = append(active, s)

		m := MonthlyEquivalent(s.Amount, s.Cadence)
		monthly = monthly.Add(m)
		annual = annual.Add(m.Mul(twelve))

		if !s.NextDueDate.Before(today) && !s.NextDueDate.After(end) {
			sum.Upcoming = append(sum.Upcoming, Upcoming{
				SubscriptionID: s.ID,
				Name:           s.Name,
				Amount:         s.Amount,
				DueDate:        s.NextDueDate,
				Cadence:        s.Cadence,
			})
		}
	}

	sort.SliceStable(sum.Upcoming, func(i, j int) bool {
		return sum.Upcoming[i].DueDate.Before(sum.Upcoming[j].DueDate)
	})
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Amount.GreaterThan(active[j].Amount)
	})
	if len(active) > TopCount {
		sum.Top = active[:TopCount]
	} else {
		sum.Top = active
	}

	sum.ActiveCount = len(active)
	sum.MonthlyTotal = monthly.Round(2)
	sum.AnnualTotal = annual.Round(2)
	return sum
}

// Service loads subscriptions and summarizes them.
type Service struct {
	db           *store.DB
	upcomingDays int
	now          func() time.Time
}

// NewService creates a dashboard Service. upcomingDays <= 0 selects
// DefaultUpcomingDays.
func NewService(db *store.DB, upcomingDays int) *Service {
	if upcomingDays <= 0 {
		upcomingDays = DefaultUpcomingDays
	}
	return &Service{db: db, upcomingDays: upcomingDays, now: time.Now}
}

// Summary returns userID's dashboard as of today.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	subs, err := s.db.Queries().ListSubscriptions(ctx, userID, model.SubscriptionActive)
	if err != nil {
		return Summary{}, fmt.Errorf("loading subscriptions: %w", err)
	}
	return Compute(subs, s.now(), s.upcomingDays), nil
}
