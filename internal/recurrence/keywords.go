package recurrence

import "strings"

// BoostTerms mark merchants that usually bill on a schedule: streaming,
// telecom, utilities, insurance, memberships, loans and card issuers.
var BoostTerms = [...]string{
	"netflix", "hulu", "spotify", "pandora", "apple", "icloud", "itunes", "app store",
	"max", "hbomax", "disney", "prime", "amazon prime", "youtube", "yt premium",
	"spectrum", "comcast", "xfinity", "verizon", "att", "tmobile", "internet",
	"electric", "energy", "water", "utility", "sewer", "gas",
	"insurance", "premium", "geico", "progressive", "state farm",
	"membership", "subscription", "billing", "recurring",
	"loan", "car payment", "lease",
	"capital one", "discover", "chase", "credit one", "amex",
}

// PenaltyTerms mark merchants whose repeat charges are rarely subscriptions:
// food delivery, restaurants, big-box retail, fuel and generic fees.
var PenaltyTerms = [...]string{
	"doordash", "uber", "ubereats", "grubhub",
	"mcdonald", "wendy", "taco", "domino", "pizza", "kfc", "burger", "chipotle", "papa", "subway", "sonic",
	"restaurant", "grill", "cafe", "bar", "steakhouse",
	"meijer", "walmart", "target", "marathon", "shell", "bp",
	"service fee", "transfer", "fee",
}

const (
	baseFactor   = 1.0
	boostDelta   = 0.25
	penaltyDelta = 0.35
	minFactor    = 0.5
	maxFactor    = 1.25
)

// MerchantFactor scores how subscription-like a merchant looks. Terms match
// as substrings of the lower-cased key and display name. A boost and a
// penalty apply independently; the result is clamped to [0.5, 1.25].
func MerchantFactor(key, display string) float64 {
	text := strings.ToLower(key + " " + display)

	score := baseFactor
	if containsAny(text, BoostTerms[:]) {
		score += boostDelta
	}
	if containsAny(text, PenaltyTerms[:]) {
		score -= penaltyDelta
	}
	return min(max(score, minFactor), maxFactor)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
