package security

import (
	"strings"
	"unicode"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// SanitizeHTML escapes the characters that are significant in HTML markup and
// attribute contexts
func SanitizeHTML(input string) string {
	return htmlEscaper.Replace(input)
}

// SanitizeString trims whitespace, drops control characters, then escapes HTML
func SanitizeString(input string) string {
	return SanitizeHTML(RemoveControlCharacters(strings.TrimSpace(input)))
}

// RemoveControlCharacters strips non-printable characters except common whitespace
func RemoveControlCharacters(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)
}

// SanitizeEmail normalizes an email address for storage and lookups
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TruncateString cuts input to at most maxLen runes
func TruncateString(input string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= maxLen {
		return input
	}
	return string(runes[:maxLen])
}
