package ingest

import "github.com/cleared-dev/subscan/internal/model"

// history is the detection input collected for one merchant key. display
// is the raw merchant text of the first charge seen.
type history struct {
	key     string
	display string
	charges []model.Charge
}

// accumulator groups detection-eligible charges by merchant key for a
// single import. Keys keep first-seen order.
type accumulator struct {
	keys  []string
	byKey map[string]*history
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*history)}
}

func (a *accumulator) add(t model.Transaction) {
	if !t.IncludeInDetection {
		return
	}
	h, ok := a.byKey[t.MerchantKey]
	if !ok {
		h = &history{key: t.MerchantKey, display: t.MerchantRaw}
		a.byKey[t.MerchantKey] = h
		a.keys = append(a.keys, t.MerchantKey)
	}
	h.charges = append(h.charges, model.Charge{Date: t.Date, Amount: t.Amount})
}

func (a *accumulator) ordered() []*history {
	out := make([]*history, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.byKey[k])
	}
	return out
}
