// Package merchant derives stable grouping keys from free-text merchant fields.
package merchant

import (
	"strings"
	"unicode"

	"github.com/cleared-dev/subscan/internal/model"
)

// Unknown is returned when nothing usable survives normalization.
const Unknown = "UNKNOWN"

// Normalize canonicalizes raw merchant text into a grouping key.
//
// The text is uppercased, everything except ASCII letters, digits and
// whitespace becomes a space, standalone numeric tokens of two or more digits
// (store and register numbers) are dropped, and whitespace is collapsed.
// Single digits are kept. The result is capped at 160 characters.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	if raw == "" {
		return Unknown
	}

	cleaned := strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, raw)

	key := joinTokens(cleaned)
	if len(key) > model.MaxMerchantKeyLen {
		// Truncation can leave a cut-off numeric tail; run the token pass
		// again so the key stays a fixed point.
		key = joinTokens(key[:model.MaxMerchantKeyLen])
	}
	if key == "" {
		return Unknown
	}
	return key
}

func joinTokens(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 && isDigits(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
