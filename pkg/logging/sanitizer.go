package logging

import (
	"strings"
	"unicode"
)

const (
	// MaxRawResponseLogLength caps how much raw generator output is
	// written to the log on a parse failure.
	MaxRawResponseLogLength = 2000

	truncationMarker = "...[truncated]"
)

// SanitizeRawResponse prepares untrusted generator output for logging:
// control characters are stripped and the text is truncated to
// MaxRawResponseLogLength. The full text never reaches the user-facing
// answer; this is for offline prompt tuning only.
func SanitizeRawResponse(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := b.String()
	if len(cleaned) > MaxRawResponseLogLength {
		return cleaned[:MaxRawResponseLogLength] + truncationMarker
	}
	return cleaned
}
