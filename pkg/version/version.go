// Package version compares dotted numeric version strings as published in the
// distribution manifest. Parsing is deliberately forgiving: non-numeric
// segments are dropped instead of rejected, so a malformed version never makes
// an update decision fail; it just compares as oldest.
package version

import "strconv"

// Parse extracts the numeric dot-segments of v, in order. Segments that are
// empty or contain any non-digit character are skipped. Trailing zero segments
// are trimmed so "1.2" and "1.2.0" parse to the same sequence.
func Parse(v string) []int {
	var out []int
	start := 0
	for i := 0; i <= len(v); i++ {
		if i < len(v) && v[i] != '.' {
			continue
		}
		seg := v[start:i]
		start = i + 1
		if !allDigits(seg) {
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil {
			// Overflow on an absurdly long segment; treat like a
			// non-numeric segment.
			continue
		}
		out = append(out, n)
	}
	for len(out) > 0 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsNewer reports whether version a is strictly newer than version b.
// Comparison is lexicographic over the parsed integer sequences; a strict
// prefix compares as older, and equal sequences are never newer in either
// direction regardless of formatting ("1.2.0" is not newer than "1.2").
func IsNewer(a, b string) bool {
	pa, pb := Parse(a), Parse(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] > pb[i]
		}
	}
	return len(pa) > len(pb)
}

// Equal reports whether a and b parse to the same version.
func Equal(a, b string) bool {
	return !IsNewer(a, b) && !IsNewer(b, a)
}
