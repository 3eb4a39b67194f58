package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/model"
)

const (
	numSubscriptionFields = 9
	subColID              = 0
	subColName            = 1
	subColMerchantKey     = 2
	subColAmount          = 3
	subColCadence         = 4
	subColNextDue         = 5
	subColCategory        = 6
	subColStatus          = 7
	subColNotes           = 8
)

var subscriptionHeader = []string{
	"id", "name", "merchant_key", "amount", "cadence",
	"next_due_date", "category", "status", "notes",
}

// WriteSubscriptions writes subscriptions as CSV with a header row.
func WriteSubscriptions(w io.Writer, subs []model.Subscription) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(subscriptionHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, s := range subs {
		if err := cw.Write(MarshalSubscription(s)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSubscriptions reads a file written by WriteSubscriptions. IDs are
// parsed but callers restoring into a database assign new ones.
func ReadSubscriptions(r io.Reader) ([]model.Subscription, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numSubscriptionFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading subscriptions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var subs []model.Subscription
	for i, rec := range records[1:] {
		s, err := UnmarshalSubscription(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// MarshalSubscription converts a Subscription to a CSV row.
func MarshalSubscription(s model.Subscription) []string {
	row := make([]string, numSubscriptionFields)
	if s.ID != 0 {
		row[subColID] = strconv.FormatInt(s.ID, 10)
	}
	row[subColName] = s.Name
	row[subColMerchantKey] = s.MerchantKey
	row[subColAmount] = s.Amount.StringFixed(2)
	row[subColCadence] = string(s.Cadence)
	row[subColNextDue] = s.NextDueDate.Format(dateFormat)
	row[subColCategory] = s.Category
	row[subColStatus] = string(s.Status)
	row[subColNotes] = s.Notes
	return row
}

// UnmarshalSubscription converts a CSV row to a Subscription.
func UnmarshalSubscription(record []string) (model.Subscription, error) {
	if len(record) != numSubscriptionFields {
		return model.Subscription{}, fmt.Errorf("expected %d fields, got %d", numSubscriptionFields, len(record))
	}

	var (
		id  int64
		err error
	)
	if record[subColID] != "" {
		id, err = strconv.ParseInt(record[subColID], 10, 64)
		if err != nil {
			return model.Subscription{}, fmt.Errorf("parsing id %q: %w", record[subColID], err)
		}
	}

	amount, err := decimal.NewFromString(record[subColAmount])
	if err != nil {
		return model.Subscription{}, fmt.Errorf("parsing amount %q: %w", record[subColAmount], err)
	}

	cadence, err := model.ParseCadence(record[subColCadence])
	if err != nil {
		return model.Subscription{}, err
	}

	due, err := time.Parse(dateFormat, record[subColNextDue])
	if err != nil {
		return model.Subscription{}, fmt.Errorf("parsing next_due_date %q: %w", record[subColNextDue], err)
	}

	status := model.SubscriptionStatus(record[subColStatus])
	switch status {
	case model.SubscriptionActive, model.SubscriptionCanceled:
	case "":
		status = model.SubscriptionActive
	default:
		return model.Subscription{}, fmt.Errorf("unknown status %q", record[subColStatus])
	}

	return model.Subscription{
		ID:          id,
		Name:        record[subColName],
		MerchantKey: record[subColMerchantKey],
		Amount:      amount,
		Cadence:     cadence,
		NextDueDate: due,
		Category:    record[subColCategory],
		Status:      status,
		Notes:       record[subColNotes],
	}, nil
}
