package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeText normalizes a free-form answer: NFC form, no control
// characters, single spaces between words (newlines kept when multiline),
// trimmed, and cut to maxRunes.
func SanitizeText(s string, maxRunes int, multiline bool) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	pendingNewline := false
	for _, r := range s {
		switch {
		case r == '\n' && multiline:
			pendingNewline = true
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsControl(r), r == utf8.RuneError:
			continue
		default:
			if b.Len() > 0 {
				if pendingNewline {
					b.WriteRune('\n')
				} else if pendingSpace {
					b.WriteRune(' ')
				}
			}
			pendingSpace, pendingNewline = false, false
			b.WriteRune(r)
		}
	}

	out := b.String()
	if maxRunes > 0 && utf8.RuneCountInString(out) > maxRunes {
		out = strings.TrimSpace(string([]rune(out)[:maxRunes]))
	}
	return out
}

// SanitizeList sanitizes each entry, drops empties and case-insensitive
// duplicates (first spelling wins), and keeps at most maxItems entries.
func SanitizeList(values []string, maxRunes, maxItems int) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = SanitizeText(v, maxRunes, false)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if maxItems > 0 && len(out) == maxItems {
			break
		}
	}
	return out
}
