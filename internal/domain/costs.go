package domain

// SessionCallCap bounds how many ledger entries are retained in a project
// state document; older entries roll off.
const SessionCallCap = 100

type CostCall struct {
	Model string  `json:"model"`
	Cost  float64 `json:"cost"`
	TS    float64 `json:"ts"`
	Note  string  `json:"note,omitempty"`
}

type CostLedger struct {
	Total float64    `json:"total"`
	Calls []CostCall `json:"calls"`
}

// Add appends a call and keeps the ledger total in sync with the call list.
func (l *CostLedger) Add(call CostCall) {
	l.Calls = append(l.Calls, call)
	if len(l.Calls) > SessionCallCap {
		l.Calls = l.Calls[len(l.Calls)-SessionCallCap:]
	}
	total := 0.0
	for _, c := range l.Calls {
		total += c.Cost
	}
	l.Total = total
}
