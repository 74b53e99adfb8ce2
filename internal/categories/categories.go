// Package categories stores the user's transaction categories in
// categories/categories.csv.
package categories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cleared-dev/tally/internal/model"
)

const (
	numFields = 3
	colID     = 0
	colName   = 1
	colParent = 2
)

// Header is the CSV header of categories.csv.
var Header = []string{"category_id", "name", "parent_id"}

// Read parses categories.csv.
func Read(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	out := make([]model.Category, 0, len(records)-1)
	for i, rec := range records[1:] {
		if rec[colID] == "" {
			return nil, fmt.Errorf("row %d: empty category_id", i+2)
		}
		out = append(out, model.Category{ID: rec[colID], Name: rec[colName], ParentID: rec[colParent]})
	}
	return out, nil
}

// Write serializes categories with a header.
func Write(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range cats {
		if err := cw.Write([]string{c.ID, c.Name, c.ParentID}); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Service is an in-memory view of the category list.
type Service struct {
	cats []model.Category
	byID map[string]model.Category
}

// NewService creates a Service.
func NewService(cats []model.Category) *Service {
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return &Service{cats: cats, byID: byID}
}

// Path returns the categories file under repoRoot.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "categories", "categories.csv")
}

// Load reads categories/categories.csv. A missing file yields an empty list.
func Load(repoRoot string) (*Service, error) {
	f, err := os.Open(Path(repoRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return NewService(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	defer f.Close()

	cats, err := Read(f)
	if err != nil {
		return nil, err
	}
	return NewService(cats), nil
}

// All returns every category.
func (s *Service) All() []model.Category { return s.cats }

// Exists reports whether id is a known category.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns a category by ID.
func (s *Service) Get(id string) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Validate checks IDs are unique and every parent exists.
func (s *Service) Validate() error {
	seen := make(map[string]bool, len(s.cats))
	var errs []error
	for _, c := range s.cats {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate category %q", c.ID))
		}
		seen[c.ID] = true
		if c.ParentID != "" && !s.Exists(c.ParentID) {
			errs = append(errs, fmt.Errorf("category %q: unknown parent %q", c.ID, c.ParentID))
		}
	}
	return errors.Join(errs...)
}

// Save writes categories/categories.csv.
func (s *Service) Save(repoRoot string) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating categories file: %w", err)
	}
	defer f.Close()

	if err := Write(f, s.cats); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}

// Defaults returns the starter category tree.
func Defaults() []model.Category {
	return []model.Category{
		{ID: "income", Name: "Income"},
		{ID: "salary", Name: "Salary", ParentID: "income"},
		{ID: "housing", Name: "Housing"},
		{ID: "rent", Name: "Rent", ParentID: "housing"},
		{ID: "utilities", Name: "Utilities", ParentID: "housing"},
		{ID: "food", Name: "Food"},
		{ID: "groceries", Name: "Groceries", ParentID: "food"},
		{ID: "dining", Name: "Dining out", ParentID: "food"},
		{ID: "transport", Name: "Transport"},
		{ID: "media", Name: "Media & subscriptions"},
		{ID: "health", Name: "Health"},
		{ID: "shopping", Name: "Shopping"},
		{ID: "fees", Name: "Bank fees"},
		{ID: "transfers", Name: "Transfers"},
	}
}
