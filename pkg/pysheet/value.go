package pysheet

import (
	"strconv"
	"strings"
)

// IsBlank reports whether a cell value counts as "no value". Both an absent
// cell and a whitespace-only string are blank.
func IsBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// ParseNumber parses a cell value as a float. A trailing '%' is accepted and
// interpreted as value/100. The returned error is a *NumericParseError.
func ParseNumber(v string) (float64, error) {
	s := strings.TrimSpace(v)
	pct := false
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		pct = true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &NumericParseError{Value: v, Err: err}
	}
	if pct {
		n /= 100
	}
	return n, nil
}

// FormatNumber renders a float back into cell form: plain decimal notation,
// no exponent, no trailing ".0" for integral values.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// canonical is the form used for header and row-ID lookup: trimmed and
// lower-cased, so "Age ", "age" and "AGE" address the same column.
func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
