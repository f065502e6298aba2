// Package jsonutil recovers structured data from unreliable generator
// output. The repair pipeline is strictly deterministic: the same input
// always yields the same output or the same failure.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// quoteReplacer maps typographic quote variants to plain ASCII quotes.
var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // curly double quotes
	"‘", "'", "’", "'", // curly single quotes
	"«", `"`, "»", `"`, // guillemets
)

// punctReplacer normalizes Unicode punctuation the generator is known
// to substitute for ASCII.
var punctReplacer = strings.NewReplacer(
	"—", "-", // em dash
	"–", "-", // en dash
	"…", "...", // ellipsis
)

// Repair converts possibly-malformed generator output into a parseable
// JSON object string. Four stages are attempted in order, each only if
// the previous result does not parse: normalization, comma repair,
// bracket balancing, aggressive cleanup. Valid input is returned
// unchanged. If all stages fail, the last error is returned and the
// caller terminates the request; there is no fifth attempt.
func Repair(raw string) (string, error) {
	text, _, err := RepairWithStage(raw)
	return text, err
}

// Stage names reported by RepairWithStage.
const (
	StageValid      = "valid"
	StageNormalize  = "normalize"
	StageCommas     = "commas"
	StageBrackets   = "brackets"
	StageAggressive = "aggressive"
	StageFailed     = "failed"
)

// RepairWithStage is Repair plus the name of the stage whose output
// first parsed, for instrumentation.
func RepairWithStage(raw string) (string, string, error) {
	if json.Valid([]byte(raw)) {
		return raw, StageValid, nil
	}

	// Stage 1: normalize quotes, strip fences, extract the object span.
	text := Normalize(raw)
	if json.Valid([]byte(text)) {
		return text, StageNormalize, nil
	}

	// Stage 2: insert missing separators, strip trailing commas.
	text = RepairCommas(text)
	if json.Valid([]byte(text)) {
		return text, StageCommas, nil
	}

	// Stage 3: close unterminated objects and arrays.
	text = BalanceBrackets(text)
	if json.Valid([]byte(text)) {
		return text, StageBrackets, nil
	}

	// Stage 4: strip control characters and normalize punctuation.
	text = AggressiveClean(text)
	if json.Valid([]byte(text)) {
		return text, StageAggressive, nil
	}

	return "", StageFailed, fmt.Errorf("no parseable JSON object after repair")
}

// Normalize is repair stage 1: replace typographic quote variants,
// strip surrounding markdown code fences, and extract the first
// balanced-looking {...} span when the text contains extra prose.
func Normalize(raw string) string {
	text := quoteReplacer.Replace(strings.TrimSpace(raw))

	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "json")
			part = strings.TrimPrefix(part, "JSON")
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "{") {
				text = part
				break
			}
		}
	}

	if span, ok := extractObjectSpan(text); ok {
		return span
	}

	// No balanced span: keep everything from the first opener so the
	// later stages can close it.
	if start := strings.IndexByte(text, '{'); start >= 0 {
		return text[start:]
	}

	return text
}

// extractObjectSpan finds the first balanced {...} span, tracking string
// literals and escape sequences so braces inside values do not count.
func extractObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// RepairCommas is repair stage 2: a closing quote, brace or bracket
// followed by an opening quote or brace without an intervening comma
// gets one inserted, and trailing commas before a closer are stripped.
// Both rules apply only outside string literals.
func RepairCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	escaped := false
	// lastSig is the last significant (non-whitespace) byte emitted
	// outside a string literal, and lastSigPos its position in b.
	var lastSig byte
	lastSigPos := -1

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				lastSig = '"'
				lastSigPos = b.Len() - 1
			}
			continue
		}

		switch c {
		case '"', '{', '[':
			if lastSig == '"' || lastSig == '}' || lastSig == ']' {
				b.WriteByte(',')
			}
			b.WriteByte(c)
			if c == '"' {
				inString = true
			}
			lastSig = c
			lastSigPos = b.Len() - 1
		case '}', ']':
			if lastSig == ',' && lastSigPos >= 0 {
				// Trailing comma: drop it from the output.
				out := b.String()
				b.Reset()
				b.WriteString(out[:lastSigPos])
				b.WriteString(out[lastSigPos+1:])
			}
			b.WriteByte(c)
			lastSig = c
			lastSigPos = b.Len() - 1
		default:
			b.WriteByte(c)
			if !isSpaceByte(c) {
				lastSig = c
				lastSigPos = b.Len() - 1
			}
		}
	}

	return b.String()
}

// BalanceBrackets is repair stage 3: scan the text tracking string
// literals and escapes, keep a stack of open braces and brackets, and
// append the matching closers in reverse order if the stack is
// non-empty at end of text. A trailing comma is dropped first. Closers
// are never inserted while the scan position is inside a string
// literal; an unterminated literal is closed before the brackets.
func BalanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	lastSig := -1 // position of last significant byte outside strings

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				lastSig = i
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			lastSig = i
		case '{':
			stack = append(stack, '}')
			lastSig = i
		case '[':
			stack = append(stack, ']')
			lastSig = i
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
			lastSig = i
		default:
			if !isSpaceByte(c) {
				lastSig = i
			}
		}
	}

	if len(stack) == 0 && !inString {
		return s
	}

	text := s
	if !inString && lastSig >= 0 && text[lastSig] == ',' {
		text = text[:lastSig] + text[lastSig+1:]
	}

	var b strings.Builder
	b.WriteString(text)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// AggressiveClean is repair stage 4: strip control characters and
// normalize common Unicode punctuation substitutions.
func AggressiveClean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return punctReplacer.Replace(b.String())
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
