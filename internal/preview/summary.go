package preview

import (
	"sort"

	"github.com/cleared-dev/tally/internal/money"
)

// Summary is derived from the rows on every call.
type Summary struct {
	TotalTransactions int           `json:"totalTransactions"`
	New               int           `json:"new"`
	Duplicates        int           `json:"duplicates"`
	Errors            int           `json:"errors"`
	Edited            int           `json:"edited"`
	Discarded         int           `json:"discarded"`
	Selected          int           `json:"selected"`
	Importable        int           `json:"importable"`
	Hidden            int           `json:"hidden"`
	TotalAmount       []money.Money `json:"totalAmount"` // non-error rows, one entry per currency
	MinDate           money.Date    `json:"minDate"`
	MaxDate           money.Date    `json:"maxDate"`
}

// Summary counts rows by status and totals the non-error rows.
func (p *Preview) Summary() Summary {
	s := Summary{TotalTransactions: len(p.rows)}
	totals := make(map[money.Currency]money.Money)

	for _, r := range p.rows {
		switch r.Status {
		case StatusNew:
			s.New++
		case StatusDuplicate:
			s.Duplicates++
		case StatusError:
			s.Errors++
		case StatusEdited:
			s.Edited++
		case StatusDiscarded:
			s.Discarded++
		}
		if r.Selected {
			s.Selected++
		}
		if r.Importable() {
			s.Importable++
		}
		if r.WillBeHidden {
			s.Hidden++
		}
		if r.Status == StatusError {
			continue
		}

		c := r.Amount.Currency()
		if sum, ok := totals[c]; ok {
			totals[c], _ = sum.Add(r.Amount)
		} else {
			totals[c] = r.Amount
		}

		if s.MinDate.IsZero() || r.Date.Before(s.MinDate) {
			s.MinDate = r.Date
		}
		if s.MaxDate.IsZero() || r.Date.After(s.MaxDate) {
			s.MaxDate = r.Date
		}
	}

	for _, m := range totals {
		s.TotalAmount = append(s.TotalAmount, m)
	}
	sort.Slice(s.TotalAmount, func(i, j int) bool {
		return s.TotalAmount[i].Currency() < s.TotalAmount[j].Currency()
	})
	return s
}
