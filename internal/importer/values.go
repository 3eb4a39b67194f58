package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	isoDateFormat = "2006-01-02"
	usDateFormat  = "1/2/2006"
)

var (
	errMissingDate   = errors.New("missing date")
	errMissingAmount = errors.New("missing amount")
	errZeroAmount    = errors.New("amount cannot be zero")
)

// ParseDate parses YYYY-MM-DD or MM/DD/YYYY. A trailing time component
// ("02/05/2026 00:00:00", "2026-02-05T10:00:00") is ignored.
func ParseDate(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, errMissingDate
	}
	v := fields[0]
	if i := strings.IndexByte(v, 'T'); i == len(isoDateFormat) {
		v = v[:i]
	}

	layout := usDateFormat
	if strings.Contains(v, "-") {
		layout = isoDateFormat
	}
	d, err := time.Parse(layout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// currencyCutset holds characters dropped from amount cells before parsing.
const currencyCutset = "$€£¥₹, \u00a0"

// plainNumber matches a cleaned amount. Exponent notation is refused: a cell
// like "1e999999999" would make rounding allocate a billion-digit integer.
var plainNumber = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)

// ParseAmount parses a signed amount cell. Currency symbols and thousands
// separators are ignored; "(15.99)" is read as -15.99. Zero is rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := cleanAmount(s)
	if v == "" {
		return decimal.Zero, errMissingAmount
	}

	neg := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		neg = true
		v = v[1 : len(v)-1]
	}
	v = strings.TrimPrefix(v, "+")
	if !plainNumber.MatchString(v) {
		return decimal.Zero, fmt.Errorf("parsing amount %q: not a decimal number", s)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.IsZero() {
		return decimal.Zero, errZeroAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func cleanAmount(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencyCutset, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
