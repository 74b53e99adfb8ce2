package ledger

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant     int
	TransactionID string
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.TransactionID, e.Description)
}

// AccountChecker tests whether an account ID exists.
type AccountChecker interface {
	Exists(id string) bool
}

// CategoryChecker tests whether a category ID exists.
type CategoryChecker interface {
	Exists(id string) bool
}

// ValidateMonth enforces the ledger invariants on one month's transactions:
//
//  1. account references exist
//  2. dates fall in the month
//  3. amounts are non-zero and within the currency's decimals
//  4. descriptions are non-empty
//  5. IDs are unique and sequential 1..N
//  6. category references exist (when categories is non-nil)
//
// Hashes are not required to be unique: two identical card payments on the
// same day are legitimate.
func ValidateMonth(txns []model.Transaction, accounts AccountChecker, categories CategoryChecker, year, month int) []ValidationError {
	var errs []ValidationError
	add := func(inv int, txnID, format string, args ...any) {
		errs = append(errs, ValidationError{Invariant: inv, TransactionID: txnID, Description: fmt.Sprintf(format, args...)})
	}

	seqSeen := make(map[int]bool)

	for _, t := range txns {
		if !accounts.Exists(t.AccountID) {
			add(1, t.ID, "unknown account %q", t.AccountID)
		}

		if t.Date.Year() != year || int(t.Date.Month()) != month {
			add(2, t.ID, "date %s not in %04d-%02d", t.Date, year, month)
		}

		if t.Amount.IsZero() {
			add(3, t.ID, "zero amount")
		} else if !t.Amount.Round().Equal(t.Amount) {
			add(3, t.ID, "amount %s has more than %d decimal places", t.Amount.Amount(), t.Amount.Currency().Decimals())
		}

		if strings.TrimSpace(t.Description) == "" {
			add(4, t.ID, "empty description")
		}

		_, _, seq, err := id.ParseEntryID(t.ID)
		switch {
		case err != nil:
			add(5, t.ID, "invalid transaction ID: %v", err)
		case seqSeen[seq]:
			add(5, t.ID, "duplicate sequence %d", seq)
		default:
			seqSeen[seq] = true
		}

		if categories != nil && t.CategoryID != "" && !categories.Exists(t.CategoryID) {
			add(6, t.ID, "unknown category %q", t.CategoryID)
		}
	}

	for i := 1; i <= len(seqSeen); i++ {
		if !seqSeen[i] {
			add(5, fmt.Sprintf("seq %d", i), "missing sequence %d in 1..%d", i, len(seqSeen))
		}
	}
	return errs
}
