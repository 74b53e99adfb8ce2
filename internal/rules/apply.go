package rules

import "github.com/cleared-dev/tally/internal/model"

// Match is the outcome of applying rules to one transaction.
type Match struct {
	RuleID     string
	CategoryID string
	Action     model.ActionType
	Confidence float64
}

// Apply evaluates every active rule against t and returns the highest
// confidence match, or nil. On equal confidence the first rule wins.
// When categories is non-empty, categorize rules pointing at unknown
// categories are ignored.
func Apply(t model.Transaction, rules []Rule, categories []model.Category) *Match {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	var best *Rule
	for i := range rules {
		r := &rules[i]
		if !r.Matches(t) {
			continue
		}
		if r.Action == model.ActionCategorize && len(known) > 0 && !known[r.CategoryID] {
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return &Match{
		RuleID:     best.ID,
		CategoryID: best.CategoryID,
		Action:     best.Action,
		Confidence: best.Confidence,
	}
}
