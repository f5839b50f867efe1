package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const MaxSlugLength = 120

// Letters that do not decompose into an ASCII base plus a combining mark.
var slugReplacer = strings.NewReplacer(
	"ı", "i", "İ", "i",
	"ß", "ss",
	"æ", "ae", "Æ", "ae",
	"ø", "o", "Ø", "o",
	"œ", "oe", "Œ", "oe",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
	"þ", "th", "Þ", "th",
	"&", " and ",
)

// Slugify turns a title into a lowercase ASCII URL segment.
func Slugify(value string) string {
	value = slugReplacer.Replace(value)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}

	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.TrimRight(sb.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// NormalizeSlug returns the slugified explicit value, or a slug derived from
// fallback when the explicit value is empty.
func NormalizeSlug(explicit, fallback string) string {
	if slug := Slugify(explicit); slug != "" {
		return slug
	}
	return Slugify(fallback)
}

// ValidSlug reports whether value is already in canonical slug form.
func ValidSlug(value string) bool {
	return value != "" && Slugify(value) == value
}
