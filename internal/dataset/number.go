package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses the longest numeric prefix of s after leading
// whitespace: "12 apples" yields 12, "abc" yields false. "Infinity" with an
// optional sign is accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	if s == "" {
		return 0, false
	}

	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i

	// Exponent only counts when followed by at least one digit.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range values still carry a usable result from ParseFloat.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// SafeNumber coerces any cell to a finite-or-not float for charting.
// Numbers pass through (NaN becomes 0). Text is stripped of everything but
// digits, '.' and '-' and then prefix-parsed, falling back to 0. Null is 0.
func SafeNumber(v Value) float64 {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) {
			return 0
		}
		return v.Num
	case KindText:
		var b strings.Builder
		for _, r := range v.Text {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				b.WriteRune(r)
			}
		}
		f, ok := ParseNumber(b.String())
		if !ok || math.IsNaN(f) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// NumericThreshold is the share of rows that must count as numeric for a
// column to be treated as numeric.
const NumericThreshold = 0.70

// numericShare counts a row when SafeNumber is nonzero, or when it is zero
// and the raw cell is not null. Only null cells fail the test.
func numericShare(rows []Record, column string) float64 {
	if len(rows) == 0 {
		return 0
	}
	n := 0
	for _, r := range rows {
		v := r[column]
		if SafeNumber(v) != 0 || !v.IsNull() {
			n++
		}
	}
	return float64(n) / float64(len(rows))
}
