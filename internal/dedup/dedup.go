// Package dedup decides whether two transaction records describe the same
// real-world event, from partial and noisy signals.
package dedup

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/textnorm"
)

// Config holds the detector's tolerances.
type Config struct {
	// Strict requires date, amount and a corroborating counterparty or reference.
	Strict bool `yaml:"strict"`
	// DateToleranceDays is the largest accepted date distance.
	DateToleranceDays int `yaml:"date_tolerance_days"`
	// AmountTolerance is the absolute accepted amount difference.
	AmountTolerance float64 `yaml:"amount_tolerance"`
	// RelativeTolerancePct is the accepted difference as a percent of the larger amount.
	RelativeTolerancePct float64 `yaml:"relative_tolerance_pct"`
	// MinContainsLength is the shortest counterparty allowed to match by containment.
	MinContainsLength int `yaml:"min_contains_length"`
}

// DefaultConfig returns exact-date, one-cent, permissive settings.
func DefaultConfig() Config {
	return Config{
		Strict:               false,
		DateToleranceDays:    0,
		AmountTolerance:      0.01,
		RelativeTolerancePct: 0,
		MinContainsLength:    4,
	}
}

// Signals are the independent similarity tests between two records.
type Signals struct {
	DateMatch         bool
	AmountMatch       bool
	CounterpartyMatch bool
	ReferenceMatch    bool
	ExactMatch        bool
}

// Verdict is the detector's decision plus a human-readable reason.
type Verdict struct {
	IsDuplicate bool
	Reason      string
	Signals     Signals
}

// Reasons reported in verdicts.
const (
	ReasonExact               = "Exact duplicate: same date, amount, counterparty and reference"
	ReasonDateAmount          = "Same date and amount"
	ReasonAmountCorroborated  = "Same amount, counterparty and reference"
	ReasonStrict              = "Same date and amount with matching counterparty or reference"
	ReasonNotDuplicate        = "No duplicate signals"
	ReasonExistingTransaction = "Already imported"
)

// Detector scores pairs of transactions. It is stateless apart from its
// config and safe for concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Config returns the detector's settings.
func (d *Detector) Config() Config { return d.cfg }

// Compare computes the similarity signals of a and b. Every signal is
// symmetric in its arguments.
func (d *Detector) Compare(a, b model.ParsedTransaction) Signals {
	var s Signals

	days := a.Date.DaysUntil(b.Date)
	if days < 0 {
		days = -days
	}
	s.DateMatch = !a.Date.IsZero() && !b.Date.IsZero() && days <= d.cfg.DateToleranceDays

	s.AmountMatch = a.Amount.Currency() == b.Amount.Currency() &&
		d.amountsClose(a.Amount.Amount(), b.Amount.Amount())

	s.CounterpartyMatch = d.counterpartiesMatch(a.Counterparty, b.Counterparty)

	refA, refB := textnorm.Fold(a.PaymentReference), textnorm.Fold(b.PaymentReference)
	s.ReferenceMatch = refA != "" && refA == refB

	s.ExactMatch = a.Date.Equal(b.Date) &&
		a.Amount.Equal(b.Amount) &&
		textnorm.Fold(a.Counterparty) == textnorm.Fold(b.Counterparty) &&
		refA == refB

	return s
}

// Detect decides whether candidate duplicates other.
func (d *Detector) Detect(candidate, other model.ParsedTransaction) Verdict {
	s := d.Compare(candidate, other)
	v := Verdict{Signals: s, Reason: ReasonNotDuplicate}

	switch {
	case s.ExactMatch:
		v.IsDuplicate, v.Reason = true, ReasonExact
	case d.cfg.Strict:
		if s.DateMatch && s.AmountMatch && (s.CounterpartyMatch || s.ReferenceMatch) {
			v.IsDuplicate, v.Reason = true, ReasonStrict
		}
	case s.DateMatch && s.AmountMatch:
		v.IsDuplicate, v.Reason = true, ReasonDateAmount
	case s.AmountMatch && s.CounterpartyMatch && s.ReferenceMatch:
		v.IsDuplicate, v.Reason = true, ReasonAmountCorroborated
	}
	return v
}

func (d *Detector) amountsClose(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	tolerance := decimal.NewFromFloat(d.cfg.AmountTolerance)
	if d.cfg.RelativeTolerancePct > 0 {
		larger := decimal.Max(a.Abs(), b.Abs())
		rel := larger.Mul(decimal.NewFromFloat(d.cfg.RelativeTolerancePct)).Div(decimal.NewFromInt(100))
		tolerance = decimal.Max(tolerance, rel)
	}
	return diff.LessThanOrEqual(tolerance)
}

// counterpartiesMatch compares folded names for equality, or containment
// when the shorter name is longer than MinContainsLength.
func (d *Detector) counterpartiesMatch(a, b string) bool {
	a, b = textnorm.Fold(a), textnorm.Fold(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len([]rune(shorter)) > d.cfg.MinContainsLength && strings.Contains(longer, shorter)
}

// BatchVerdict is the batch scan outcome for one row. DuplicateOf is the
// index of the row it was matched against, or -1.
type BatchVerdict struct {
	Verdict
	DuplicateOf int
}

// DetectDuplicates flags duplicates within a batch, in input order.
//
// Each unflagged row acts as a source and is compared with every later
// unflagged row; a match flags both. Flagged rows are never used as a
// source again. This is not a transitive closure: a row that only matches
// an already-flagged sibling, and not that sibling's source, is missed.
func (d *Detector) DetectDuplicates(txns []model.ParsedTransaction) []BatchVerdict {
	out := make([]BatchVerdict, len(txns))
	for i := range out {
		out[i] = BatchVerdict{Verdict: Verdict{Reason: ReasonNotDuplicate}, DuplicateOf: -1}
	}

	for i := range txns {
		if out[i].IsDuplicate {
			continue
		}
		for j := i + 1; j < len(txns); j++ {
			if out[j].IsDuplicate {
				continue
			}
			v := d.Detect(txns[i], txns[j])
			if !v.IsDuplicate {
				continue
			}
			out[j] = BatchVerdict{Verdict: v, DuplicateOf: i}
			if !out[i].IsDuplicate {
				out[i] = BatchVerdict{Verdict: v, DuplicateOf: j}
			}
		}
	}
	return out
}
