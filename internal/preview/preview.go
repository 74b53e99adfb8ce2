// Package preview holds the import preview aggregate: the user-reviewable
// staging area for one batch of parsed bank rows.
package preview

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Status is a row's place in the review state machine.
//
//	NEW -> EDITED            description or category changed
//	NEW, EDITED -> DISCARDED
//	DUPLICATE -> DISCARDED
//	ERROR                    terminal
type Status string

const (
	StatusNew       Status = "NEW"
	StatusDuplicate Status = "DUPLICATE"
	StatusError     Status = "ERROR"
	StatusEdited    Status = "EDITED"
	StatusDiscarded Status = "DISCARDED"
)

// Row is one line of the preview. IDs are batch-local.
type Row struct {
	ID               string            `json:"id"`
	Line             int               `json:"line"`
	Date             money.Date        `json:"date"`
	Description      string            `json:"description"`
	Amount           money.Money       `json:"amount"`
	PaymentReference string            `json:"paymentReference,omitempty"`
	Counterparty     string            `json:"counterparty,omitempty"`
	CategoryID       string            `json:"categoryId,omitempty"`
	Status           Status            `json:"status"`
	IsDuplicate      bool              `json:"isDuplicate"`
	DuplicateOf      string            `json:"duplicateOf,omitempty"`
	DuplicateReason  string            `json:"duplicateReason,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorField       string            `json:"errorField,omitempty"`
	Selected         bool              `json:"selected"`
	WillBeHidden     bool              `json:"willBeHidden"`
	IsEdited         bool              `json:"isEdited"`
	SuggestedBy      string            `json:"suggestedBy,omitempty"` // rule ID
	OriginalData     map[string]string `json:"originalData,omitempty"`
	Hash             string            `json:"-"`

	userCategorized bool
	userHidden      bool
}

// Importable reports whether the row would be committed.
func (r Row) Importable() bool {
	return r.Selected && r.Status != StatusError && r.Status != StatusDiscarded
}

// Transaction converts the row to the persistence shape.
func (r Row) Transaction(accountID string) model.Transaction {
	return model.Transaction{
		AccountID:        accountID,
		Date:             r.Date,
		Amount:           r.Amount,
		Description:      r.Description,
		PaymentReference: r.PaymentReference,
		Counterparty:     r.Counterparty,
		CategoryID:       r.CategoryID,
		Hidden:           r.WillBeHidden,
		Hash:             r.Hash,
	}
}

// Preview is the aggregate root. Rows live in an append-only arena and are
// addressed by ID through index; the summary is never cached.
//
// A Preview is owned by a single caller and is not safe for concurrent use.
type Preview struct {
	ID        string
	FileName  string
	AccountID string
	CreatedAt time.Time

	rows  []Row
	index map[string]int
}

// New assembles a preview from built rows.
func New(id, fileName, accountID string, createdAt time.Time, rows []Row) (*Preview, error) {
	if err := validateSource(fileName, accountID); err != nil {
		return nil, err
	}

	p := &Preview{
		ID:        id,
		FileName:  fileName,
		AccountID: accountID,
		CreatedAt: createdAt,
		rows:      make([]Row, 0, len(rows)),
		index:     make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		if r.ID == "" {
			return nil, &ValidationError{Field: "row id", Message: "must not be empty"}
		}
		if _, dup := p.index[r.ID]; dup {
			return nil, &ValidationError{Field: "row id", Message: fmt.Sprintf("duplicate %q", r.ID)}
		}
		p.index[r.ID] = len(p.rows)
		p.rows = append(p.rows, r)
	}
	return p, nil
}

func validateSource(fileName, accountID string) error {
	if strings.TrimSpace(fileName) == "" {
		return &ValidationError{Field: "file name", Message: "must not be empty"}
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return &ValidationError{Field: "file name", Message: fmt.Sprintf("%q is not a .csv file", fileName)}
	}
	if strings.TrimSpace(accountID) == "" {
		return &ValidationError{Field: "account id", Message: "must not be empty"}
	}
	return nil
}

func (p *Preview) row(id string) (*Row, error) {
	i, ok := p.index[id]
	if !ok {
		return nil, &NotFoundError{Kind: "row", ID: id}
	}
	return &p.rows[i], nil
}

// Rows returns a copy of all rows in file order.
func (p *Preview) Rows() []Row {
	out := make([]Row, len(p.rows))
	copy(out, p.rows)
	return out
}

// Row returns a copy of one row.
func (p *Preview) Row(id string) (Row, error) {
	r, err := p.row(id)
	if err != nil {
		return Row{}, err
	}
	return *r, nil
}

// Len returns the number of rows.
func (p *Preview) Len() int { return len(p.rows) }

// Select marks a row for import.
func (p *Preview) Select(id string) error {
	return p.setSelected(id, true)
}

// Deselect excludes a row from import.
func (p *Preview) Deselect(id string) error {
	return p.setSelected(id, false)
}

func (p *Preview) setSelected(id string, selected bool) error {
	r, err := p.row(id)
	if err != nil {
		return err
	}
	if r.Status == StatusError {
		return &ValidationError{Field: "row", Message: fmt.Sprintf("%s has a parse error and cannot be selected", id)}
	}
	r.Selected = selected
	return nil
}

// SelectAll selects every non-error row.
func (p *Preview) SelectAll() {
	for i := range p.rows {
		if p.rows[i].Status != StatusError {
			p.rows[i].Selected = true
		}
	}
}

// DeselectAll clears every selection.
func (p *Preview) DeselectAll() {
	for i := range p.rows {
		p.rows[i].Selected = false
	}
}

// Discard drops a row from the batch.
func (p *Preview) Discard(id string) error {
	r, err := p.row(id)
	if err != nil {
		return err
	}
	if r.Status == StatusError {
		return &ValidationError{Field: "row", Message: fmt.Sprintf("%s has a parse error and cannot be discarded", id)}
	}
	r.Status = StatusDiscarded
	r.Selected = false
	return nil
}

// DiscardDuplicates discards every row flagged as duplicate and returns how
// many rows changed.
func (p *Preview) DiscardDuplicates() int {
	n := 0
	for i := range p.rows {
		r := &p.rows[i]
		if !r.IsDuplicate || r.Status == StatusError || r.Status == StatusDiscarded {
			continue
		}
		r.Status = StatusDiscarded
		r.Selected = false
		n++
	}
	return n
}

// UpdateDescription replaces a row's description.
func (p *Preview) UpdateDescription(id, text string) error {
	r, err := p.row(id)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationError{Field: "description", Message: "must not be empty"}
	}
	if r.Status == StatusError {
		return &ValidationError{Field: "row", Message: fmt.Sprintf("%s has a parse error and cannot be edited", id)}
	}
	r.Description = text
	r.IsEdited = true
	if r.Status == StatusNew {
		r.Status = StatusEdited
	}
	return nil
}

// AssignCategoryToSelected sets categoryID on every selected non-error row
// and returns how many rows were updated. Category existence is checked by
// the commit collaborator, not here.
func (p *Preview) AssignCategoryToSelected(categoryID string) (int, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return 0, &ValidationError{Field: "category id", Message: "must not be empty"}
	}
	n := 0
	for i := range p.rows {
		r := &p.rows[i]
		if !r.Selected || r.Status == StatusError {
			continue
		}
		r.CategoryID = categoryID
		r.userCategorized = true
		r.SuggestedBy = ""
		if r.Status == StatusNew {
			r.Status = StatusEdited
		}
		n++
	}
	return n, nil
}

// HideSelected marks every selected row to be stored hidden and returns how
// many rows it touched. Selection and status are unchanged.
func (p *Preview) HideSelected() int {
	n := 0
	for i := range p.rows {
		r := &p.rows[i]
		if !r.Selected {
			continue
		}
		r.WillBeHidden = true
		r.userHidden = true
		n++
	}
	return n
}

// Importable returns the rows that would be committed: selected and neither
// ERROR nor DISCARDED.
func (p *Preview) Importable() []Row {
	var out []Row
	for _, r := range p.rows {
		if r.Importable() {
			out = append(out, r)
		}
	}
	return out
}

// Validate is the commit gate.
func (p *Preview) Validate() error {
	importable := p.Importable()
	if len(importable) == 0 {
		return &InvariantError{Message: "nothing to import"}
	}

	var noDesc, zero []string
	for _, r := range importable {
		if strings.TrimSpace(r.Description) == "" {
			noDesc = append(noDesc, r.ID)
		}
		if r.Amount.IsZero() {
			zero = append(zero, r.ID)
		}
	}
	if len(noDesc) > 0 {
		return &InvariantError{Message: "importable rows without description", RowIDs: noDesc}
	}
	if len(zero) > 0 {
		return &InvariantError{Message: "importable rows with zero amount", RowIDs: zero}
	}
	return nil
}

// applySuggestion pre-fills a NEW row from a matching rule. Status stays NEW.
func (p *Preview) applySuggestion(i int, ruleID string, action model.ActionType, categoryID string) {
	r := &p.rows[i]
	if r.Status != StatusNew {
		return
	}
	switch action {
	case model.ActionCategorize:
		r.CategoryID = categoryID
	case model.ActionOmit:
		r.WillBeHidden = true
	default:
		return
	}
	r.SuggestedBy = ruleID
}
