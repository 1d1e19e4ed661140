package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString drops control characters, collapses runs of whitespace and
// truncates to maxLen bytes without splitting a rune.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r), r == utf8.RuneError:
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen <= 0 || len(out) <= maxLen {
		return out
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(out[cut]) {
		cut--
	}
	return strings.TrimRight(out[:cut], " ")
}
