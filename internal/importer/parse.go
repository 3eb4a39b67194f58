package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/subscan/internal/merchant"
	"github.com/cleared-dev/subscan/internal/model"
)

const bom = "\ufeff"

var errMissingMerchant = errors.New("missing merchant")

// Result is the outcome of parsing one payload.
type Result struct {
	Transactions []model.Transaction
	Added        int
	Skipped      int
	Errors       []RowError // one per skipped row
}

// RowError describes why a row was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Parse converts a bank CSV export of unknown layout into transactions for
// userID. It never fails: undecodable bytes are dropped and rows that cannot
// be read are skipped and counted.
func Parse(payload []byte, userID string) Result {
	text := recoverHeader(normalizeNewlines(strings.ToValidUTF8(string(payload), "")))

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var res Result

	header, err := cr.Read()
	if err != nil {
		return res
	}
	layout := ResolveLayout(header)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			res.skip(line, fmt.Errorf("reading record: %w", err))
			continue
		}

		line, _ := cr.FieldPos(0)
		txn, err := parseRow(rec, layout)
		if err != nil {
			res.skip(line, err)
			continue
		}
		txn.UserID = userID
		res.Transactions = append(res.Transactions, txn)
		res.Added++
	}
	return res
}

func (r *Result) skip(line int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, RowError{Line: line, Err: err})
}

// normalizeNewlines turns CRLF and lone CR line endings into LF. Older Mac
// exports end lines with CR only, which encoding/csv does not split on.
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}

// recoverHeader drops banner lines that some banks put above the real header.
// The header is the first line with a comma that mentions both a date and an
// amount. Without such a line the text is returned unchanged.
func recoverHeader(text string) string {
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		ln = strings.TrimRight(strings.TrimPrefix(ln, bom), " \t\r")
		if !strings.Contains(ln, ",") {
			continue
		}
		lower := strings.ToLower(ln)
		if strings.Contains(lower, "date") && strings.Contains(lower, "amount") {
			lines[i] = ln
			return strings.Join(lines[i:], "\n")
		}
	}
	return text
}

func parseRow(rec []string, layout Layout) (model.Transaction, error) {
	dateVal := layout.Col(RoleDate).Cell(rec)
	if dateVal == "" {
		return model.Transaction{}, errMissingDate
	}
	merchantRaw := layout.Col(RoleMerchant).Cell(rec)
	if merchantRaw == "" {
		return model.Transaction{}, errMissingMerchant
	}

	date, err := ParseDate(dateVal)
	if err != nil {
		return model.Transaction{}, err
	}

	amount, include, err := rowAmount(rec, layout)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		Date:               date,
		MerchantRaw:        model.Truncate(merchantRaw, model.MaxMerchantRawLen),
		MerchantKey:        merchant.Normalize(merchantRaw),
		Amount:             amount,
		IncludeInDetection: include,
	}, nil
}

// rowAmount picks the row's amount. A populated single amount column wins;
// otherwise a non-zero debit is a charge and a non-zero credit is stored but
// kept out of detection.
func rowAmount(rec []string, layout Layout) (decimal.Decimal, bool, error) {
	if v := layout.Col(RoleAmount).Cell(rec); v != "" {
		d, err := ParseAmount(v)
		if err != nil {
			return decimal.Zero, false, err
		}
		return centsOf(d, true)
	}
	if d, err := ParseAmount(layout.Col(RoleDebit).Cell(rec)); err == nil {
		return centsOf(d, true)
	}
	if d, err := ParseAmount(layout.Col(RoleCredit).Cell(rec)); err == nil {
		return centsOf(d, false)
	}
	return decimal.Zero, false, errMissingAmount
}

// centsOf rounds |d| to cents, rejecting values that round to zero.
func centsOf(d decimal.Decimal, include bool) (decimal.Decimal, bool, error) {
	m := d.Abs().Round(2)
	if m.IsZero() {
		return decimal.Zero, false, errZeroAmount
	}
	return m, include, nil
}
