package rules

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/textnorm"
)

// stopWords are dropped from payment-reference keywords.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true, "with": true, "via": true,
	"payment": true, "ref": true, "reference": true, "sepa": true, "invoice": true,
	"der": true, "die": true, "das": true, "und": true, "von": true, "fur": true,
	"para": true, "con": true, "del": true, "los": true, "las": true, "pago": true,
}

// Suggestion is one mined rule plus the evidence for it.
type Suggestion struct {
	Rule                 Rule
	Confidence           float64
	AffectedTransactions []string // IDs of transactions the rule matches
	CategoryID           string
	Action               model.ActionType
	Description          string
}

// Miner turns a user action log into rule suggestions.
type Miner struct {
	cfg Config
	now func() time.Time
}

// NewMiner creates a Miner. A nil now uses time.Now.
func NewMiner(cfg Config, now func() time.Time) *Miner {
	if now == nil {
		now = time.Now
	}
	return &Miner{cfg: cfg, now: now}
}

type pattern struct {
	key         string
	cond        Condition
	priority    int
	action      model.ActionType
	categoryID  string
	occurrences int
	recent      int
}

// Suggest mines actions for recurring patterns and returns one suggestion per
// pattern that clears MinOccurrences and MinConfidence, sorted by descending
// confidence. Equal confidences keep first-seen order.
func (m *Miner) Suggest(actions []model.UserAction, all []model.Transaction) []Suggestion {
	cutoff := m.now().AddDate(0, 0, -m.cfg.RecencyDays)

	var order []*pattern
	byKey := make(map[string]*pattern)
	add := func(field Field, value string, cond Condition, priority int, a model.UserAction) {
		key := patternKey(field, value, a.Action, a.CategoryID)
		p, ok := byKey[key]
		if !ok {
			p = &pattern{key: key, cond: cond, priority: priority, action: a.Action, categoryID: a.CategoryID}
			byKey[key] = p
			order = append(order, p)
		}
		p.occurrences++
		if !a.Timestamp.Before(cutoff) {
			p.recent++
		}
	}

	for _, a := range actions {
		switch a.Action {
		case model.ActionCategorize:
			if a.CategoryID == "" {
				continue
			}
		case model.ActionOmit:
			a.CategoryID = ""
		default:
			continue
		}
		t := a.Transaction

		if cp := textnorm.Fold(counterpartyOf(t)); cp != "" {
			add(FieldCounterparty, cp, CounterpartyContains{Pattern: cp}, 3, a)
		}

		if bucket, ok := m.bucket(t.Amount.Amount()); ok {
			add(FieldAmount, bucket.String(), m.amountRange(bucket), 1, a)
		}

		for _, kw := range m.keywords(t.PaymentReference) {
			add(FieldReference, kw, ReferenceContains{Keyword: kw}, 2, a)
		}
	}

	created := m.now()
	var out []Suggestion
	for _, p := range order {
		if p.occurrences < m.cfg.MinOccurrences {
			continue
		}
		conf := m.confidence(p.occurrences, p.recent)
		if conf < m.cfg.MinConfidence {
			continue
		}
		rule := Rule{
			ID:          uuid.NewString(),
			Key:         p.key,
			Condition:   p.cond,
			Action:      p.action,
			CategoryID:  p.categoryID,
			Confidence:  conf,
			Active:      true,
			Priority:    p.priority,
			Occurrences: p.occurrences,
			CreatedAt:   created,
		}
		var affected []string
		for _, t := range all {
			if rule.Matches(t) {
				affected = append(affected, t.ID)
			}
		}
		out = append(out, Suggestion{
			Rule:                 rule,
			Confidence:           conf,
			AffectedTransactions: affected,
			CategoryID:           p.categoryID,
			Action:               p.action,
			Description:          rule.Describe(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// confidence = min(base + recency + frequency, MaxConfidence).
func (m *Miner) confidence(occurrences, recent int) float64 {
	if occurrences <= 0 {
		return 0
	}
	threshold := float64(max(m.cfg.LearningThreshold, 1))
	base := math.Min(float64(occurrences)/threshold, 1)
	recency := float64(recent) / float64(occurrences) * m.cfg.RecencyWeight
	frequency := math.Min(float64(occurrences)*m.cfg.FrequencyStep, m.cfg.FrequencyCap)
	conf := math.Min(base+recency+frequency, m.cfg.MaxConfidence)
	return math.Round(conf*1e4) / 1e4
}

// bucket rounds amount to the nearest AmountBucket. Zero buckets carry no signal.
func (m *Miner) bucket(amount decimal.Decimal) (decimal.Decimal, bool) {
	if m.cfg.AmountBucket <= 0 {
		return decimal.Zero, false
	}
	size := decimal.NewFromFloat(m.cfg.AmountBucket)
	b := amount.Div(size).Round(0).Mul(size)
	return b, !b.IsZero()
}

func (m *Miner) amountRange(bucket decimal.Decimal) AmountBetween {
	spread := decimal.NewFromFloat(m.cfg.AmountSpread)
	lo := bucket.Mul(decimal.NewFromInt(1).Sub(spread))
	hi := bucket.Mul(decimal.NewFromInt(1).Add(spread))
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	return AmountBetween{Min: lo, Max: hi}
}

// keywords returns the distinct reference tokens worth learning from.
func (m *Miner) keywords(reference string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range textnorm.Tokens(reference) {
		if len([]rune(tok)) < m.cfg.MinKeywordLength || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
