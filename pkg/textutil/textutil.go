// Package textutil holds small text helpers shared by ingestion and display code.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns at most maxChars runes of text. It never splits a
// multi-byte character. A non-positive maxChars returns text unchanged.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

// Preview flattens newlines and truncates text for single-line display,
// appending "..." when something was cut.
func Preview(text string, maxChars int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	cut := Truncate(text, maxChars)
	if len(cut) < len(text) {
		return cut + "..."
	}
	return cut
}
