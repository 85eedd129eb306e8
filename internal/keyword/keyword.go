// Package keyword derives artifact slugs from backlog keywords and provides
// the normalizers used to detect semantically duplicate topics.
package keyword

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer maps a keyword to the key used for duplicate detection.
type Normalizer func(keyword string) string

// Slug derives the deterministic artifact slug for a keyword.
func Slug(keyword string) string {
	var sb strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(strings.ToLower(keyword)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// Exact treats keywords as duplicates only when their slugs match.
func Exact(keyword string) string {
	return Slug(keyword)
}

// BagOfWords lower-cases, strips punctuation and sorts the words, so
// "red wine pairing" and "wine red pairing" collide.
func BagOfWords(keyword string) string {
	words := strings.Split(Slug(keyword), "-")
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// FromSlug reverses Slug well enough to feed a slug back into a Normalizer.
func FromSlug(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}
