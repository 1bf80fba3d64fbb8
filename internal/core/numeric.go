package core

// numeric.go handles the German decimal convention of the lab exports:
// "1,25" is one and a quarter. Missing or unparseable values become NaN and
// are treated as missing data, never as zero.

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimal converts a comma-decimal string to a float64.
// Blank, non-numeric, infinite or NaN input returns NaN.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN()
	}
	return v
}

// IsMissing reports whether v represents missing data.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// FormatDecimal renders v with a fixed number of places and a decimal comma.
// Missing values render as "".
func FormatDecimal(v float64, places int) string {
	if IsMissing(v) {
		return ""
	}
	s := strconv.FormatFloat(roundHalfUp(v, places), 'f', places, 64)
	return strings.Replace(s, ".", ",", 1)
}

// roundHalfUp rounds to places decimals by looking at the next digit of the
// shortest decimal form of v, as on paper: 1.005 rounds to 1.01 and
// 1.10499999999 to 1.10. Halves round away from zero.
func roundHalfUp(v float64, places int) float64 {
	if IsMissing(v) || math.IsInf(v, 0) {
		return v
	}

	digits := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")
	if len(frac) <= places {
		return v
	}

	p := math.Pow10(places)
	if places > 0 {
		whole += "." + frac[:places]
	}
	truncated, err := strconv.ParseFloat(whole, 64)
	if err != nil {
		return math.Round(v*p) / p
	}
	scaled := math.Round(truncated * p)
	if frac[places] >= '5' {
		scaled++
	}
	return math.Copysign(scaled/p, v)
}
