package importer

import "strings"

// Role identifies what a CSV column carries.
type Role int

const (
	RoleDate Role = iota
	RoleMerchant
	RoleAmount
	RoleDebit
	RoleCredit
	numRoles
)

func (r Role) String() string {
	switch r {
	case RoleDate:
		return "date"
	case RoleMerchant:
		return "merchant"
	case RoleAmount:
		return "amount"
	case RoleDebit:
		return "debit"
	case RoleCredit:
		return "credit"
	default:
		return "unknown"
	}
}

// roleHeaders lists the accepted header names per role, in priority order.
// Memo fields usually carry the real counterparty, so they beat "merchant".
var roleHeaders = [numRoles][]string{
	RoleDate:     {"date", "transaction_date", "posted_date"},
	RoleMerchant: {"memo", "description", "merchant", "name"},
	RoleAmount:   {"amount", "transaction_amount"},
	RoleDebit:    {"amount debit", "debit", "withdrawal", "debits"},
	RoleCredit:   {"amount credit", "credit", "deposit", "credits"},
}

// Column is a resolved column index, or Unresolved.
type Column int

// Unresolved marks a role with no matching header.
const Unresolved Column = -1

// Resolved reports whether the column was found in the header.
func (c Column) Resolved() bool { return c >= 0 }

// Cell returns the trimmed value of c in rec, or "" when c is unresolved or
// rec is too short.
func (c Column) Cell(rec []string) string {
	if !c.Resolved() || int(c) >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[c])
}

// Layout maps every role to a column of the header row.
type Layout [numRoles]Column

// ResolveLayout matches header names against the known role headers.
// Matching ignores case, and "_" is treated as a space, so "Posted Date"
// resolves like "posted_date".
func ResolveLayout(header []string) Layout {
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(strings.TrimPrefix(h, bom))
		if k == "" {
			continue
		}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	var l Layout
	for role, names := range roleHeaders {
		l[role] = Unresolved
		for _, name := range names {
			if i, ok := index[headerKey(name)]; ok {
				l[role] = Column(i)
				break
			}
		}
	}
	return l
}

// Col returns the column bound to role.
func (l Layout) Col(role Role) Column { return l[role] }

func headerKey(h string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(h), "_", " ")), " ")
}
