// Package xmlutil delimits untrusted text inside oracle prompts.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape returns s with XML metacharacters escaped. Invalid UTF-8 is
// replaced with U+FFFD so the result is always well formed.
func Escape(s string) string {
	s = strings.ToValidUTF8(s, "�")
	var buf strings.Builder
	buf.Grow(len(s))
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Tag wraps escaped content in an XML element, e.g. Tag("text", s) yields
// "<text>...</text>". Text inside the element cannot close it early.
func Tag(name, content string) string {
	return "<" + name + ">" + Escape(content) + "</" + name + ">"
}
