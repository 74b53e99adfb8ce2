package importer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes a bank amount cell into a decimal.
//
// Whitespace, currency symbols, apostrophe group marks and a leading or
// trailing three-letter currency code are dropped. A single sign is allowed:
// a leading "-", "+" or "−", a trailing "-", or surrounding parentheses.
// Any other non-digit besides '.' and ',' is an error. Both "1.234,56" and
// "1,234.56" are understood: with both separators present the last one is
// the decimal mark; with a single separator followed by exactly three digits
// it is a thousands mark.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(stripCurrencyCode(strings.TrimSpace(raw)))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("amount is empty")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), r == '\'':
		default:
			b.WriteRune(r)
		}
	}
	rs := []rune(b.String())

	signs := 0
	negative := false
	if n := len(rs); n >= 2 && rs[0] == '(' && rs[n-1] == ')' {
		negative = true
		signs++
		rs = rs[1 : n-1]
	}

	if len(rs) > 0 {
		switch rs[0] {
		case '-', '−':
			negative = true
			signs++
			rs = rs[1:]
		case '+':
			signs++
			rs = rs[1:]
		}
	}
	if len(rs) > 0 && rs[len(rs)-1] == '-' {
		negative = true
		signs++
		rs = rs[:len(rs)-1]
	}
	if signs > 1 {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more than one sign", raw)
	}

	digits := false
	for _, r := range rs {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.', r == ',':
		default:
			return decimal.Decimal{}, fmt.Errorf("unexpected %q in amount %q", r, raw)
		}
	}
	if !digits {
		return decimal.Decimal{}, fmt.Errorf("no digits in amount %q", raw)
	}

	s, err := normalizeSeparators(string(rs))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", raw, err)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// stripCurrencyCode removes one ISO-style code ("EUR", "CHF") from either
// end of s. Lower-case or longer letter runs are left for the caller to reject.
func stripCurrencyCode(s string) string {
	isCode := func(c string) bool {
		if len(c) != 3 {
			return false
		}
		for _, r := range c {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	}
	if len(s) >= 3 && isCode(s[:3]) && (len(s) == 3 || !unicode.IsLetter(rune(s[3]))) {
		return s[3:]
	}
	if n := len(s); n >= 3 && isCode(s[n-3:]) && (n == 3 || !unicode.IsLetter(rune(s[n-4]))) {
		return s[:n-3]
	}
	return s
}

// normalizeSeparators rewrites s (digits, '.' and ',' only) to use '.' as
// the decimal mark and no thousands marks.
func normalizeSeparators(s string) (string, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalMark, thousands := ".", ","
		if lastComma > lastDot {
			decimalMark, thousands = ",", "."
		}
		if strings.Count(s, decimalMark) > 1 {
			return "", fmt.Errorf("repeated decimal mark %q", decimalMark)
		}
		s = strings.ReplaceAll(s, thousands, "")
		return strings.Replace(s, decimalMark, ".", 1), nil

	case lastDot >= 0:
		return singleSeparator(s, ".")

	case lastComma >= 0:
		return singleSeparator(s, ",")
	}
	return s, nil
}

// singleSeparator handles amounts that contain only one kind of separator.
func singleSeparator(s, sep string) (string, error) {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, ""), nil
	}
	intPart, frac, _ := strings.Cut(s, sep)
	if len(frac) == 3 && intPart != "" && strings.Trim(intPart, "0") != "" {
		return intPart + frac, nil
	}
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart, nil
	}
	return intPart + "." + frac, nil
}
