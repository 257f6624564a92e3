// Package utils provides common utility functions.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// NormalizeWhitespace replaces runs of whitespace with a single space and trims the ends.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates str to at most maxChars characters, appending Ellipsis when cut.
func TruncateString(str string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(str) <= maxChars {
		return str
	}

	runes := []rune(str)

	return string(runes[:maxChars]) + Ellipsis
}

// WordCount returns the number of whitespace separated words.
func WordCount(str string) int {
	return len(strings.Fields(str))
}

// ContainsAnyFold reports whether str contains any of the needles, ignoring case.
func ContainsAnyFold(str string, needles []string) bool {
	lower := strings.ToLower(str)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}

	return false
}
