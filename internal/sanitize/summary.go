package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// WordsPerMinute is the reading speed used by ReadingMinutes.
const WordsPerMinute = 200

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed to single spaces.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(Text(html)), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns up to maxRunes of plain text taken from the paragraphs of
// an HTML body, cut at a word boundary with a trailing ellipsis.
func Excerpt(html string, maxRunes int) string {
	if maxRunes <= 0 || strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return truncateWords(PlainText(html), maxRunes)
	}

	var parts []string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
		return utf8.RuneCountInString(strings.Join(parts, " ")) < maxRunes
	})

	text := strings.Join(parts, " ")
	if text == "" {
		text = PlainText(html)
	}
	return truncateWords(text, maxRunes)
}

// ReadingMinutes estimates reading time for an HTML body, never less than one.
func ReadingMinutes(html string) int {
	words := len(strings.Fields(PlainText(html)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// FirstImage returns the src of the first image in an HTML body.
func FirstImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func truncateWords(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}
