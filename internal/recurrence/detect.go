// Package recurrence decides whether a merchant's charge history looks like a
// subscription, and if so on what cadence.
package recurrence

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/model"
)

type bucket struct {
	cadence   model.Cadence
	target    float64
	tolerance float64
}

// buckets are tested in order. Monthly is wide because real billing drifts
// between 28 and 35 days.
var buckets = []bucket{
	{model.CadenceWeekly, 7, 2},
	{model.CadenceMonthly, 30, 7},
	{model.CadenceQuarterly, 91, 12},
	{model.CadenceYearly, 365, 25},
}

const (
	amountTolerance = 0.12

	cadenceWeight = 0.75
	amountWeight  = 0.25

	// Acceptance thresholds.
	minConfidence       = 0.50
	minPairConfidence   = 0.45
	minPairFactor       = 0.95
	confidencePrecision = 4
)

// CadenceFromGaps classifies the median of gaps (in days) into a cadence.
// The score is the fraction of gaps that individually fall inside the
// matched bucket. ok is false when no bucket matches.
func CadenceFromGaps(gaps []int) (c model.Cadence, score float64, ok bool) {
	if len(gaps) == 0 {
		return "", 0, false
	}

	med := medianInt(gaps)
	for _, b := range buckets {
		if math.Abs(med-b.target) > b.tolerance {
			continue
		}
		within := 0
		for _, g := range gaps {
			if math.Abs(float64(g)-b.target) <= b.tolerance {
				within++
			}
		}
		return b.cadence, float64(within) / float64(len(gaps)), true
	}
	return "", 0, false
}

// AmountStability returns the fraction of amounts within 12% of their
// median, or 0 when the median is zero.
func AmountStability(amounts []decimal.Decimal) float64 {
	if len(amounts) == 0 {
		return 0
	}
	med := medianDecimal(amounts)
	if med.IsZero() {
		return 0
	}

	tol := med.Abs().Mul(decimal.NewFromFloat(amountTolerance))
	within := 0
	for _, a := range amounts {
		if a.Sub(med).Abs().LessThanOrEqual(tol) {
			within++
		}
	}
	return float64(within) / float64(len(amounts))
}

// EvidenceWeight caps confidence by the number of observations.
func EvidenceWeight(n int) float64 {
	switch {
	case n >= 5:
		return 1.0
	case n == 4:
		return 0.9
	case n == 3:
		return 0.8
	default:
		return 0.6
	}
}

// Detect analyzes the charge history of one merchant. It returns nil when
// the history shows no recurring pattern strong enough to report.
func Detect(key, display string, history []model.Charge) *model.DetectionResult {
	if len(history) < 2 {
		return nil
	}

	charges := make([]model.Charge, len(history))
	copy(charges, history)
	sort.SliceStable(charges, func(i, j int) bool { return charges[i].Date.Before(charges[j].Date) })

	gaps := make([]int, 0, len(charges)-1)
	amounts := make([]decimal.Decimal, 0, len(charges))
	for i, c := range charges {
		amounts = append(amounts, c.Amount)
		if i > 0 {
			gaps = append(gaps, daysBetween(charges[i-1].Date, c.Date))
		}
	}

	cadence, cadenceScore, ok := CadenceFromGaps(gaps)
	if !ok {
		return nil
	}

	n := len(charges)
	factor := MerchantFactor(key, display)
	raw := (cadenceWeight*cadenceScore + amountWeight*AmountStability(amounts)) * EvidenceWeight(n) * factor
	confidence := decimal.NewFromFloat(raw).Round(confidencePrecision).InexactFloat64()

	if n == 2 {
		if factor < minPairFactor || cadenceScore < 1.0 || confidence < minPairConfidence {
			return nil
		}
	} else if confidence < minConfidence {
		return nil
	}

	last := charges[n-1].Date
	return &model.DetectionResult{
		MerchantKey:   key,
		DisplayName:   display,
		AvgAmount:     medianDecimal(amounts).Round(2),
		Cadence:       cadence,
		Confidence:    math.Min(confidence, 1.0),
		LastSeen:      last,
		NextPredicted: last.AddDate(0, 0, cadence.Period()),
	}
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func medianInt(xs []int) float64 {
	s := append([]int(nil), xs...)
	sort.Ints(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}

func medianDecimal(xs []decimal.Decimal) decimal.Decimal {
	s := append([]decimal.Decimal(nil), xs...)
	sort.Slice(s, func(i, j int) bool { return s[i].LessThan(s[j]) })
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return s[mid-1].Add(s[mid]).Div(decimal.NewFromInt(2))
}
