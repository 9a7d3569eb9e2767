// Package coerce converts the loosely formatted monetary, date, and
// percentage strings found in the cooperative's spreadsheet exports into
// canonical numeric and ISO forms. Unparseable input degrades to a
// default value rather than failing: tolerance here is a contract, the
// upstream spreadsheets are hand-edited.
package coerce

import (
	"strconv"
	"strings"
)

// moneyColumnHints is the fixed set of substrings that mark a canonical
// column as carrying a currency amount. Matched case-insensitively.
var moneyColumnHints = []string{
	"vr.", "valor", "recaudo", "deuda", "abono", "saldo",
	"amount", "fare", "total", "collected", "debt",
}

// IsMoneyColumn reports whether a canonical column name carries a
// currency amount.
func IsMoneyColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range moneyColumnHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// IsPercentColumn reports whether a canonical column name carries a
// completion percentage.
func IsPercentColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "%") || strings.Contains(lower, "cump")
}

// IsDateColumn reports whether a canonical column name carries a date.
func IsDateColumn(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return lower == "fecha" || strings.HasPrefix(lower, "fecha ")
}

// Money parses a monetary string by stripping every character that is
// not a digit, sign, or decimal point. When more than one dot survives,
// the dots are locale grouping separators and are removed, so
// "$ 1.234.567", "1,234,567.00" and "1234567" all yield 1234567.
// Unparseable input yields 0.
func Money(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if strings.Count(cleaned, ".") > 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// Percent parses a completion percentage, accepting both "." and ","
// as the decimal separator. Unparseable input yields 0.
func Percent(s string) float64 {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ISODate normalizes a date string to YYYY-MM-DD. Both DD/MM/YYYY and
// YYYY-MM-DD shapes are accepted, disambiguated by which segment has
// length 4. Anything else passes through unchanged.
func ISODate(s string) string {
	trimmed := strings.TrimSpace(s)
	sep := "/"
	if !strings.Contains(trimmed, "/") {
		sep = "-"
	}
	parts := strings.Split(trimmed, sep)
	if len(parts) != 3 {
		return s
	}
	for _, p := range parts {
		if !allDigits(p) {
			return s
		}
	}
	switch {
	case len(parts[0]) == 4:
		// Already year-first
		return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
	case len(parts[2]) == 4:
		// Day-first
		return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
	default:
		return s
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Digits keeps only the digit characters of s, the cleanup the original
// loaders apply to integer identifier columns (owner IDs, row numbers).
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
