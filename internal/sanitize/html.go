package sanitize

import (
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	// Use for fields that should only contain plain text (names, titles, labels).
	StrictPolicy = bluemonday.StrictPolicy()

	// RichPolicy is the editor policy: UGC formatting plus figures and
	// syntax-highlighting classes on code blocks.
	RichPolicy = richPolicy()
)

var codeClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)

func richPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("figure", "figcaption")
	p.AllowAttrs("class").Matching(codeClass).OnElements("code")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AddTargetBlankToFullyQualifiedLinks(false)
	p.RequireNoReferrerOnFullyQualifiedLinks(true)
	return p
}

// Text strips all HTML tags and returns plain text for storage. The policy
// entity-encodes what it keeps, so the result is unescaped again: a stored
// "R&D" stays "R&D" and JSON encoding is left to the response writer.
func Text(input string) string {
	return html.UnescapeString(StrictPolicy.Sanitize(input))
}

// HTML sanitizes rich-text bodies produced by the editor.
// Removes: <script>, <iframe>, event handlers, style attributes.
func HTML(input string) string {
	return RichPolicy.Sanitize(input)
}
