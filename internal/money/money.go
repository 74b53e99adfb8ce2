package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedCurrency is returned for currency codes outside the supported set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrCurrencyMismatch is returned when combining amounts in different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Currency is an ISO 4217 code.
type Currency string

// decimals is the minor-unit scale per supported currency.
var decimals = map[Currency]int32{
	"EUR": 2,
	"USD": 2,
	"GBP": 2,
	"CHF": 2,
	"CAD": 2,
	"AUD": 2,
	"SEK": 2,
	"NOK": 2,
	"DKK": 2,
	"PLN": 2,
	"CZK": 2,
	"MXN": 2,
	"BRL": 2,
	"ARS": 2,
	"JPY": 0,
	"KRW": 0,
	"CLP": 0,
	"ISK": 0,
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := decimals[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return c, nil
}

// Supported returns the supported currency codes in sorted order.
func Supported() []Currency {
	out := make([]Currency, 0, len(decimals))
	for c := range decimals {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decimals returns the number of minor-unit digits for c.
func (c Currency) Decimals() int32 {
	return decimals[c]
}

// Money is an immutable amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money after validating the currency.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	c, err := ParseCurrency(string(currency))
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: c}, nil
}

// NewFromFloat creates a Money from a float, rejecting NaN and infinities.
func NewFromFloat(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("amount must be finite, got %v", amount)
	}
	return New(decimal.NewFromFloat(amount), currency)
}

// Parse creates a Money from a plain decimal string like "-25.30".
func Parse(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return New(d, currency)
}

// Zero returns a zero amount in currency.
func Zero(currency Currency) (Money, error) {
	return New(decimal.Zero, currency)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns m+o. Both must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub returns m-o. Both must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return Money{amount: m.amount.Sub(o.amount), currency: m.currency}, nil
}

// Neg returns -m.
func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }

// Abs returns |m|.
func (m Money) Abs() Money { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Round rounds to the currency's minor unit (half away from zero).
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(m.currency.Decimals()), currency: m.currency}
}

// Equal reports value equality, ignoring trailing zeros.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// Cmp compares amounts. Callers must ensure the currencies match.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// StringFixed formats the amount with the currency's decimals, e.g. "-25.30".
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.Decimals())
}

// String formats as "-25.30 EUR".
func (m Money) String() string {
	if m.currency == "" {
		return m.amount.String()
	}
	return m.StringFixed() + " " + string(m.currency)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON encodes as {"amount":"-25.30","currency":"EUR"}.
func (m Money) MarshalJSON() ([]byte, error) {
	amount := m.amount.String()
	if m.currency != "" {
		amount = m.StringFixed()
	}
	return json.Marshal(moneyJSON{Amount: amount, Currency: m.currency})
}
