package id

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatEntryID returns a ledger entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ParseEntryID parses "2025-01-001" into year, month, seq.
func ParseEntryID(entryID string) (year, month, seq int, err error) {
	parts := strings.SplitN(entryID, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", entryID)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", entryID, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q", entryID)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q", entryID)
	}

	return year, month, seq, nil
}

// FormatRowID returns a batch-local preview row ID like "row-0007".
// Row IDs are not persistence IDs.
func FormatRowID(seq int) string {
	return fmt.Sprintf("row-%04d", seq)
}

// ParseRowID returns the sequence of a preview row ID.
func ParseRowID(rowID string) (int, error) {
	n, ok := strings.CutPrefix(rowID, "row-")
	if !ok {
		return 0, fmt.Errorf("invalid row ID %q", rowID)
	}
	seq, err := strconv.Atoi(n)
	if err != nil {
		return 0, fmt.Errorf("invalid row ID %q: %w", rowID, err)
	}
	return seq, nil
}
