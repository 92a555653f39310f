package identity

import (
	"strings"
	"unicode"
)

// maxNameRunes is the name-length bound from spec.md §3 ("length 1-50
// grapheme clusters after normalization"). Counting runes rather than
// full grapheme clusters is a deliberate simplification: the corpus
// carries no grapheme-segmentation library (no golang.org/x/text/unicode
// import anywhere in the retrieval pack), and identity names are
// short user-chosen labels where rune count and grapheme-cluster count
// coincide for the overwhelming majority of inputs (combining marks and
// ZWJ emoji sequences are the only divergence). Documented here rather
// than silently assumed.
const maxNameRunes = 50

var unsafeNameChars = map[rune]bool{
	'<': true, '>': true, '"': true, '\'': true, '`': true,
}

// sanitizeName strips HTML-unsafe characters, collapses internal
// whitespace runs, and trims leading/trailing whitespace, per spec.md §3.
func sanitizeName(raw string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range raw {
		if unsafeNameChars[r] {
			continue
		}
		if unicode.IsSpace(r) {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b.WriteRune(' ')
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func nameRuneCount(s string) int {
	return len([]rune(s))
}
