package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugSuffixLength = 6

// Slugify folds s to lowercase ASCII words joined by single hyphens:
// "Café & Bar" -> "cafe-bar". Characters without an ASCII base are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// SlugBase is Slugify(s) cut so that the slug plus a collision suffix still
// fits in a column of maxLen characters.
func SlugBase(s string, maxLen int) string {
	return TruncateSlug(Slugify(s), maxLen-slugSuffixLength-1)
}

// TruncateSlug cuts slug to at most maxLen characters without leaving a
// trailing hyphen. Slugs are ASCII, so bytes and characters coincide.
func TruncateSlug(slug string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return strings.TrimRight(slug, "-")
}

// SlugWithSuffix appends a random suffix to base, used after a slug collision.
func SlugWithSuffix(base string) string {
	suffix := GenerateShortCode(slugSuffixLength)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
