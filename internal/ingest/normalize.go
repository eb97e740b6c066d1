package ingest

import (
	"strings"
	"unicode"
)

// Normalize prepares raw page text for chunking: whitespace runs (including
// newlines) collapse to single spaces and surrounding whitespace is trimmed.
// Chunk offsets are computed over the normalized text.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
