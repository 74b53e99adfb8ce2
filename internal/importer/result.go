package importer

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

// StructuralError means the file as a whole cannot be parsed
// (empty input, unresolvable required columns). No rows are produced.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural parse error: " + e.Reason
}

// RowError describes one rejected row. Row is the 1-based line number in
// the source file; Field is the column role at fault, or "" when unknown.
type RowError struct {
	Row     int
	Field   string
	Message string
	RawData map[string]string
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// Summary counts processed data rows. Valid+Errored == Total always holds.
type Summary struct {
	Total   int
	Valid   int
	Errored int
}

// Result is the outcome of parsing one file.
type Result struct {
	Transactions []model.ParsedTransaction
	Errors       []RowError
	Summary      Summary
	Delimiter    rune
	Header       []string
	Columns      Columns
}
