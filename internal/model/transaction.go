package model

import (
	"github.com/cleared-dev/tally/internal/money"
)

// ParsedTransaction is one normalized CSV row, produced before any
// duplicate or preview logic runs. It is never mutated after creation.
type ParsedTransaction struct {
	Row              int // 1-based line number in the source file
	Date             money.Date
	Amount           money.Money // negative = expense, positive = income
	Description      string
	PaymentReference string
	Counterparty     string
	RawData          map[string]string // original header -> cell
}

// Transaction is a stored (or about to be stored) transaction, the shape
// exchanged with the persistence collaborators.
type Transaction struct {
	ID               string // empty until committed
	AccountID        string
	Date             money.Date
	Amount           money.Money
	Description      string
	PaymentReference string
	Counterparty     string
	CategoryID       string
	Hidden           bool
	Hash             string
}

// ExistingRef points at a stored transaction found by hash.
type ExistingRef struct {
	ID        string
	AccountID string
	Date      money.Date
}
