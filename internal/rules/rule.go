// Package rules learns single-condition categorization rules from past user
// decisions and applies them to new transactions.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/textnorm"
)

// Field is the transaction attribute a condition inspects.
type Field string

const (
	FieldCounterparty Field = "counterparty"
	FieldAmount       Field = "amount"
	FieldReference    Field = "payment_reference"
)

// Operator is how a condition compares its field.
type Operator string

const (
	OpContains Operator = "contains"
	OpBetween  Operator = "between"
)

// Condition is a single-field predicate. The set of implementations is
// closed: CounterpartyContains, ReferenceContains and AmountBetween.
type Condition interface {
	Field() Field
	Operator() Operator
	Matches(t model.Transaction) bool
	String() string
	isCondition()
}

// CounterpartyContains matches when the folded counterparty contains Pattern.
// Transactions without a counterparty are matched on their description.
type CounterpartyContains struct {
	Pattern string
}

func (CounterpartyContains) Field() Field       { return FieldCounterparty }
func (CounterpartyContains) Operator() Operator { return OpContains }
func (CounterpartyContains) isCondition()       {}

func (c CounterpartyContains) Matches(t model.Transaction) bool {
	p := textnorm.Fold(c.Pattern)
	return p != "" && strings.Contains(textnorm.Fold(counterpartyOf(t)), p)
}

func (c CounterpartyContains) String() string {
	return fmt.Sprintf("counterparty contains %q", c.Pattern)
}

// ReferenceContains matches when the folded payment reference contains Keyword.
type ReferenceContains struct {
	Keyword string
}

func (ReferenceContains) Field() Field       { return FieldReference }
func (ReferenceContains) Operator() Operator { return OpContains }
func (ReferenceContains) isCondition()       {}

func (c ReferenceContains) Matches(t model.Transaction) bool {
	k := textnorm.Fold(c.Keyword)
	return k != "" && strings.Contains(textnorm.Fold(t.PaymentReference), k)
}

func (c ReferenceContains) String() string {
	return fmt.Sprintf("reference contains %q", c.Keyword)
}

// AmountBetween matches signed amounts in [Min, Max].
type AmountBetween struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (AmountBetween) Field() Field       { return FieldAmount }
func (AmountBetween) Operator() Operator { return OpBetween }
func (AmountBetween) isCondition()       {}

func (c AmountBetween) Matches(t model.Transaction) bool {
	a := t.Amount.Amount()
	return a.GreaterThanOrEqual(c.Min) && a.LessThanOrEqual(c.Max)
}

func (c AmountBetween) String() string {
	return fmt.Sprintf("amount between %s and %s", c.Min.StringFixed(2), c.Max.StringFixed(2))
}

func counterpartyOf(t model.Transaction) string {
	if strings.TrimSpace(t.Counterparty) != "" {
		return t.Counterparty
	}
	return t.Description
}

// Rule is a confidence-scored single-condition predicate. Rules are never
// edited once created; a new suggestion for the same Key replaces the old rule.
type Rule struct {
	ID          string
	Key         string // pattern key the rule was mined from
	Condition   Condition
	Action      model.ActionType
	CategoryID  string // set for ActionCategorize
	Confidence  float64
	Active      bool
	Priority    int
	Occurrences int
	CreatedAt   time.Time
}

// Matches reports whether the rule is active and its condition holds for t.
func (r Rule) Matches(t model.Transaction) bool {
	return r.Active && r.Condition != nil && r.Condition.Matches(t)
}

// Describe returns a one-line human description.
func (r Rule) Describe() string {
	cond := "<no condition>"
	if r.Condition != nil {
		cond = r.Condition.String()
	}
	if r.Action == model.ActionOmit {
		return "Hide transactions where " + cond
	}
	return fmt.Sprintf("Categorize as %s where %s", r.CategoryID, cond)
}

// Validate checks the rule's invariants.
func (r Rule) Validate() error {
	var errs []error
	if r.Condition == nil {
		errs = append(errs, errors.New("missing condition"))
	}
	switch r.Action {
	case model.ActionCategorize:
		if r.CategoryID == "" {
			errs = append(errs, errors.New("categorize rule needs a category"))
		}
	case model.ActionOmit:
	default:
		errs = append(errs, fmt.Errorf("unknown action %q", r.Action))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %v out of [0,1]", r.Confidence))
	}
	if c, ok := r.Condition.(AmountBetween); ok && c.Min.GreaterThan(c.Max) {
		errs = append(errs, fmt.Errorf("amount range %s > %s", c.Min, c.Max))
	}
	if len(errs) > 0 {
		return fmt.Errorf("rule %s: %w", r.ID, errors.Join(errs...))
	}
	return nil
}

// patternKey identifies one (axis, value, action, category) tuple.
func patternKey(field Field, value string, action model.ActionType, categoryID string) string {
	target := categoryID
	if action == model.ActionOmit {
		target = "omit"
	}
	return fmt.Sprintf("%s|%s|%s|%s", field, value, action, target)
}
