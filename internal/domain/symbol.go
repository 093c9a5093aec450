package domain

import (
	"regexp"
	"strings"
)

// tickerPattern matches a normalized ticker: a leading $ followed by
// 2-4 uppercase alphanumerics.
var tickerPattern = regexp.MustCompile(`^\$[A-Z0-9]{2,4}$`)

// NormalizeSymbol uppercases a raw ticker and prepends the $ prefix if
// missing. It does not validate the result.
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s != "" && !strings.HasPrefix(s, "$") {
		s = "$" + s
	}
	return s
}

// ValidSymbol reports whether s is a normalized ticker of the form
// $XX to $XXXX (alphanumeric).
func ValidSymbol(s string) bool {
	return tickerPattern.MatchString(s)
}

// TieBreak derives a small deterministic fraction from a symbol's
// characters. It is added to popularity scores so that symbols with
// equal share counts sort in a stable order. Distinct symbols with
// permuted characters can still collide, so ranking falls back to a
// lexicographic comparison as the final key.
func TieBreak(symbol string) float64 {
	var sum float64
	for _, c := range symbol {
		sum += float64(c) / 10000.0
	}
	return sum
}
