package ingest

import (
	"strings"
	"unicode"

	"github.com/newstide/newstide/internal/hash/sha256"
)

var hasher = sha256.New()

// NormalizeTitle trims the title and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// CanonicalTitle reduces a title to its dedup form: case-folded, punctuation
// stripped, whitespace collapsed. "Fed Raises Rates!" and "fed raises rates"
// canonicalize identically.
func CanonicalTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DedupKey derives the dedup key for a title. Uniqueness is enforced per
// source, so the key itself only encodes the canonical title.
func DedupKey(title string) string {
	key, _ := hasher.Hash([]byte(CanonicalTitle(title)))
	return key
}

// Summarize picks the item summary, falling back to its content, and
// truncates to limit runes. Truncation is by rune so multibyte text cannot be
// split mid-character.
func Summarize(summary, content string, limit int) string {
	s := strings.TrimSpace(summary)
	if s == "" {
		s = strings.TrimSpace(content)
	}
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
