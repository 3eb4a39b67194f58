package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cadence is the inferred billing frequency of a recurring charge.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
)

// Period returns the number of days between charges for c.
func (c Cadence) Period() int {
	switch c {
	case CadenceWeekly:
		return 7
	case CadenceMonthly:
		return 30
	case CadenceQuarterly:
		return 91
	default:
		return 365
	}
}

// ParseCadence validates a cadence name (case-insensitive).
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceYearly:
		return c, nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// CandidateStatus is the review state of a detected candidate.
type CandidateStatus string

const (
	CandidatePending   CandidateStatus = "pending"
	CandidateConfirmed CandidateStatus = "confirmed"
	CandidateIgnored   CandidateStatus = "ignored"
)

// DetectionResult is the output of one recurrence detection run for a merchant.
type DetectionResult struct {
	MerchantKey   string
	DisplayName   string
	AvgAmount     decimal.Decimal // median of charge amounts
	Cadence       Cadence
	Confidence    float64
	LastSeen      time.Time
	NextPredicted time.Time
}

// Candidate is a detected recurring charge awaiting user review.
type Candidate struct {
	ID                      int64
	UserID                  string
	MerchantKey             string
	DisplayName             string
	AvgAmount               decimal.Decimal
	CadenceGuess            Cadence
	Confidence              float64
	LastSeen                time.Time
	NextPredicted           time.Time
	Status                  CandidateStatus
	ConfirmedSubscriptionID int64 // 0 = none
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Apply overwrites the detection-derived fields of c with r.
func (c *Candidate) Apply(r DetectionResult) {
	c.DisplayName = Truncate(r.DisplayName, MaxDisplayNameLen)
	c.AvgAmount = r.AvgAmount
	c.CadenceGuess = r.Cadence
	c.Confidence = r.Confidence
	c.LastSeen = r.LastSeen
	c.NextPredicted = r.NextPredicted
}

// SubscriptionStatus is the lifecycle state of a confirmed subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is a recurring charge the user has confirmed.
type Subscription struct {
	ID          int64
	UserID      string
	Name        string
	MerchantKey string
	Amount      decimal.Decimal
	Cadence     Cadence
	NextDueDate time.Time
	Category    string
	Status      SubscriptionStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
