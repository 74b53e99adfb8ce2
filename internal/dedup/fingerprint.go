package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/textnorm"
)

// Fingerprint is the storage lookup hash of a transaction:
// SHA256("{account}|{date}|{amount}|{folded description}") with the amount
// at two decimals.
func Fingerprint(accountID string, date money.Date, amount money.Money, description string) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		accountID,
		date.String(),
		amount.Amount().StringFixed(2),
		textnorm.Fold(description),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
