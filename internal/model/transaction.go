package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field limits shared by the parser, reconciler and store.
const (
	MaxMerchantRawLen  = 255
	MaxMerchantKeyLen  = 160
	MaxDisplayNameLen  = 160
	MaxSubscriptionLen = 120
)

// Transaction represents one parsed bank CSV row.
type Transaction struct {
	ID                 int64
	UserID             string
	BatchID            string
	Date               time.Time
	MerchantRaw        string          // display text as it appeared in the export
	MerchantKey        string          // normalized grouping key
	Amount             decimal.Decimal // always positive, 2 places
	IncludeInDetection bool            // false for credits
}

// ImportBatch records one uploaded file.
type ImportBatch struct {
	ID          string
	UserID      string
	Filename    string
	ImportedAt  time.Time
	RowsAdded   int
	RowsSkipped int
}

// Charge is a single detection-eligible observation for a merchant.
type Charge struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
