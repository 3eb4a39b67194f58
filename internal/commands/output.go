package commands

import (
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/dashboard"
	"github.com/cleared-dev/subscan/internal/model"
)

const dateFormat = "2006-01-02"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

type candidateView struct {
	ID                      int64                 `json:"id"`
	MerchantKey             string                `json:"merchant_key"`
	DisplayName             string                `json:"display_name"`
	AvgAmount               decimal.Decimal       `json:"avg_amount"`
	CadenceGuess            model.Cadence         `json:"cadence_guess"`
	Confidence              float64               `json:"confidence"`
	LastSeen                string                `json:"last_seen"`
	NextPredicted           string                `json:"next_predicted"`
	Status                  model.CandidateStatus `json:"status"`
	ConfirmedSubscriptionID *int64                `json:"confirmed_subscription_id"`
}

func newCandidateView(c model.Candidate) candidateView {
	v := candidateView{
		ID:            c.ID,
		MerchantKey:   c.MerchantKey,
		DisplayName:   c.DisplayName,
		AvgAmount:     c.AvgAmount,
		CadenceGuess:  c.CadenceGuess,
		Confidence:    c.Confidence,
		LastSeen:      formatDay(c.LastSeen),
		NextPredicted: formatDay(c.NextPredicted),
		Status:        c.Status,
	}
	if c.ConfirmedSubscriptionID != 0 {
		id := c.ConfirmedSubscriptionID
		v.ConfirmedSubscriptionID = &id
	}
	return v
}

type subscriptionView struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name"`
	MerchantKey string                   `json:"merchant_key"`
	Amount      decimal.Decimal          `json:"amount"`
	Cadence     model.Cadence            `json:"cadence"`
	NextDueDate string                   `json:"next_due_date"`
	Category    string                   `json:"category"`
	Status      model.SubscriptionStatus `json:"status"`
	Notes       string                   `json:"notes"`
}

func newSubscriptionView(s model.Subscription) subscriptionView {
	return subscriptionView{
		ID:          s.ID,
		Name:        s.Name,
		MerchantKey: s.MerchantKey,
		Amount:      s.Amount,
		Cadence:     s.Cadence,
		NextDueDate: formatDay(s.NextDueDate),
		Category:    s.Category,
		Status:      s.Status,
		Notes:       s.Notes,
	}
}

type upcomingView struct {
	SubscriptionID int64           `json:"subscription_id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	Cadence        model.Cadence   `json:"cadence"`
}

type dashboardView struct {
	ActiveCount  int                `json:"active_count"`
	MonthlyTotal decimal.Decimal    `json:"monthly_total"`
	AnnualTotal  decimal.Decimal    `json:"annual_total"`
	Upcoming     []upcomingView     `json:"upcoming"`
	Top          []subscriptionView `json:"top_subscriptions"`
}

func newDashboardView(s dashboard.Summary) dashboardView {
	v := dashboardView{
		ActiveCount:  s.ActiveCount,
		MonthlyTotal: s.MonthlyTotal,
		AnnualTotal:  s.AnnualTotal,
		Upcoming:     make([]upcomingView, 0, len(s.Upcoming)),
		Top:          make([]subscriptionView, 0, len(s.Top)),
	}
	for _, u := range s.Upcoming {
		v.Upcoming = append(v.Upcoming, upcomingView{
			SubscriptionID: u.SubscriptionID,
			Name:           u.Name,
			Amount:         u.Amount,
			DueDate:        formatDay(u.DueDate),
			Cadence:        u.Cadence,
		})
	}
	for _, sub := range s.Top {
		v.Top = append(v.Top, newSubscriptionView(sub))
	}
	return v
}
