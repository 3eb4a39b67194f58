// Package export writes candidates and subscriptions as CSV, and reads
// subscription exports back for restore.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/subscan/internal/model"
)

const dateFormat = "2006-01-02"

const (
	numCandidateFields = 9
	candColID          = 0
	candColMerchantKey = 1
	candColDisplayName = 2
	candColAvgAmount   = 3
	candColCadence     = 4
	candColConfidence  = 5
	candColLastSeen    = 6
	candColNext        = 7
	candColStatus      = 8
)

var candidateHeader = []string{
	"id", "merchant_key", "display_name", "avg_amount", "cadence_guess",
	"confidence", "last_seen", "next_predicted", "status",
}

// WriteCandidates writes candidates as CSV with a header row.
func WriteCandidates(w io.Writer, cands []model.Candidate) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(candidateHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range cands {
		if err := cw.Write(MarshalCandidate(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCandidate converts a Candidate to a CSV row.
func MarshalCandidate(c model.Candidate) []string {
	row := make([]string, numCandidateFields)
	row[candColID] = strconv.FormatInt(c.ID, 10)
	row[candColMerchantKey] = c.MerchantKey
	row[candColDisplayName] = c.DisplayName
	row[candColAvgAmount] = c.AvgAmount.StringFixed(2)
	row[candColCadence] = string(c.CadenceGuess)
	row[candColConfidence] = strconv.FormatFloat(c.Confidence, 'f', 4, 64)
	row[candColLastSeen] = c.LastSeen.Format(dateFormat)
	row[candColNext] = c.NextPredicted.Format(dateFormat)
	row[candColStatus] = string(c.Status)
	return row
}
