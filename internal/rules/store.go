package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// ruleDoc is the on-disk shape of a rule.
type ruleDoc struct {
	ID          string    `yaml:"id"`
	Key         string    `yaml:"key"`
	Field       Field     `yaml:"field"`
	Operator    Operator  `yaml:"operator"`
	Value       string    `yaml:"value,omitempty"`
	Min         string    `yaml:"min,omitempty"`
	Max         string    `yaml:"max,omitempty"`
	Action      string    `yaml:"action"`
	CategoryID  string    `yaml:"category_id,omitempty"`
	Confidence  float64   `yaml:"confidence"`
	Active      bool      `yaml:"active"`
	Priority    int       `yaml:"priority"`
	Occurrences int       `yaml:"occurrences"`
	CreatedAt   time.Time `yaml:"created_at"`
}

type ruleFile struct {
	Rules []ruleDoc `yaml:"rules"`
}

func toDoc(r Rule) (ruleDoc, error) {
	d := ruleDoc{
		ID:          r.ID,
		Key:         r.Key,
		Action:      string(r.Action),
		CategoryID:  r.CategoryID,
		Confidence:  r.Confidence,
		Active:      r.Active,
		Priority:    r.Priority,
		Occurrences: r.Occurrences,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	switch c := r.Condition.(type) {
	case CounterpartyContains:
		d.Field, d.Operator, d.Value = FieldCounterparty, OpContains, c.Pattern
	case ReferenceContains:
		d.Field, d.Operator, d.Value = FieldReference, OpContains, c.Keyword
	case AmountBetween:
		d.Field, d.Operator = FieldAmount, OpBetween
		d.Min, d.Max = c.Min.String(), c.Max.String()
	default:
		return ruleDoc{}, fmt.Errorf("rule %s: unsupported condition %T", r.ID, r.Condition)
	}
	return d, nil
}

func fromDoc(d ruleDoc) (Rule, error) {
	action, err := model.ParseActionType(d.Action)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", d.ID, err)
	}
	r := Rule{
		ID:          d.ID,
		Key:         d.Key,
		Action:      action,
		CategoryID:  d.CategoryID,
		Confidence:  d.Confidence,
		Active:      d.Active,
		Priority:    d.Priority,
		Occurrences: d.Occurrences,
		CreatedAt:   d.CreatedAt,
	}

	switch {
	case d.Field == FieldCounterparty && d.Operator == OpContains:
		r.Condition = CounterpartyContains{Pattern: d.Value}
	case d.Field == FieldReference && d.Operator == OpContains:
		r.Condition = ReferenceContains{Keyword: d.Value}
	case d.Field == FieldAmount && d.Operator == OpBetween:
		lo, err := decimal.NewFromString(d.Min)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: parsing min: %w", d.ID, err)
		}
		hi, err := decimal.NewFromString(d.Max)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: parsing max: %w", d.ID, err)
		}
		r.Condition = AmountBetween{Min: lo, Max: hi}
	default:
		return Rule{}, fmt.Errorf("rule %s: unsupported condition %s %s", d.ID, d.Field, d.Operator)
	}

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Store persists rules in a YAML file.
type Store struct {
	path string
}

// NewStore creates a Store backed by path (usually rules/rules.yaml).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads all rules. A missing file means no rules.
func (s *Store) Load() ([]Rule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	out := make([]Rule, 0, len(f.Rules))
	for _, d := range f.Rules {
		r, err := fromDoc(d)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", s.path, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Save overwrites the file with rules.
func (s *Store) Save(rules []Rule) error {
	f := ruleFile{Rules: make([]ruleDoc, 0, len(rules))}
	for _, r := range rules {
		d, err := toDoc(r)
		if err != nil {
			return err
		}
		f.Rules = append(f.Rules, d)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

// SaveSuggestions stores the suggested rules, replacing any stored rule with
// the same pattern key. Returns the number of rules written.
func (s *Store) SaveSuggestions(suggestions []Suggestion) (int, error) {
	existing, err := s.Load()
	if err != nil {
		return 0, err
	}
	incoming := make([]Rule, len(suggestions))
	for i, sg := range suggestions {
		incoming[i] = sg.Rule
	}
	if err := s.Save(Merge(existing, incoming)); err != nil {
		return 0, err
	}
	return len(incoming), nil
}

// Merge returns existing with every rule sharing a Key with an incoming rule
// replaced by it, followed by the incoming rules that were new.
func Merge(existing, incoming []Rule) []Rule {
	byKey := make(map[string]Rule, len(incoming))
	for _, r := range incoming {
		byKey[r.Key] = r
	}

	out := make([]Rule, 0, len(existing)+len(incoming))
	used := make(map[string]bool)
	for _, r := range existing {
		if nr, ok := byKey[r.Key]; ok && r.Key != "" {
			if !used[r.Key] {
				out = append(out, nr)
				used[r.Key] = true
			}
			continue
		}
		out = append(out, r)
	}
	for _, r := range incoming {
		switch {
		case r.Key == "":
			out = append(out, r)
		case !used[r.Key]:
			out = append(out, byKey[r.Key])
			used[r.Key] = true
		}
	}
	return out
}
