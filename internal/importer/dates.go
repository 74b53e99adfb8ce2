package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/money"
)

// primaryDateLayouts are tried first, in order: ISO, dotted DD.MM.YYYY,
// slashed DD/MM/YYYY. Day and month may have one or two digits.
var primaryDateLayouts = []string{
	"2006-1-2",
	"2.1.2006",
	"2/1/2006",
}

// fallbackDateLayouts is the locale-free generic pass.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/1/2",
	"2-1-2006",
	"20060102",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 2 Jan 2006",
	"2.1.06",
}

// ParseDate parses a date cell. The first matching layout wins.
func ParseDate(raw string) (money.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return money.Date{}, fmt.Errorf("date is empty")
	}
	for _, layout := range primaryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return money.DateOf(t), nil
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return money.DateOf(t), nil
		}
	}
	return money.Date{}, fmt.Errorf("unrecognized date %q", raw)
}
