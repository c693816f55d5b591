package domain

import "unicode/utf8"

// CharCount returns the number of characters (Unicode code points) in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n characters without splitting a rune and
// reports whether anything was removed.
func Truncate(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// Preview truncates s to n characters and appends "..." when it was cut.
func Preview(s string, n int) string {
	cut, truncated := Truncate(s, n)
	if truncated {
		return cut + "..."
	}
	return cut
}
