package validation

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy() // Removes all HTML tags

// SanitizeText removes all HTML tags and attributes from an input string.
// The policy escapes entities on output; they are decoded again because the
// value is stored as plain text, not rendered.
func SanitizeText(s string) string {
	return html.UnescapeString(strictHTMLPolicy.Sanitize(s))
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// CollapseWhitespace trims s and turns any run of whitespace (including NBSP) into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanFreeText is the normalization applied to free-text product metadata.
func CleanFreeText(s string) string {
	if s == "" {
		return s
	}
	return CollapseWhitespace(StripUnprintable(SanitizeText(s)))
}
