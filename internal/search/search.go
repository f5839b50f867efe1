// Package search indexes published content in Meilisearch and answers
// public search queries, falling back to Postgres when Meilisearch is down.
package search

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Types of content that are indexed.
const (
	TypeProduct = "product"
	TypeBlog    = "blog"
	TypeEvent   = "event"
	TypePage    = "page"
)

// Types lists every indexed content type.
var Types = []string{TypeProduct, TypeBlog, TypeEvent, TypePage}

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

var ErrEmptyQuery = errors.New("search query is empty")

// Document is one (entity, locale) pair as stored in the index.
type Document struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	EntityID string `json:"entity_id"`
	Locale   string `json:"locale"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// DocumentID builds the index key of an entity translation.
func DocumentID(typ, entityID, locale string) string {
	return typ + "_" + entityID + "_" + locale
}

type Query struct {
	Text   string
	Locale string
	Type   string
	Limit  int
}

// Normalize trims the query and clamps the limit. Unknown types are dropped.
func (q Query) Normalize() (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, ErrEmptyQuery
	}
	if len([]rune(q.Text)) > 200 {
		q.Text = string([]rune(q.Text)[:200])
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if !ValidType(q.Type) {
		q.Type = ""
	}
	return q, nil
}

func ValidType(typ string) bool {
	for _, t := range Types {
		if t == typ {
			return true
		}
	}
	return false
}

type Hit struct {
	Type     string `json:"type"`
	EntityID string `json:"entity_id"`
	Locale   string `json:"locale"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet,omitempty"`
}

type Response struct {
	Query  string `json:"query"`
	Engine string `json:"engine"`
	Hits   []Hit  `json:"hits"`
}

// Store is the database side: it loads indexable documents and runs the
// fallback search.
type Store interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
	// Documents returns the documents of one published entity; none when the
	// entity is a draft or gone.
	Documents(ctx context.Context, typ, entityID string) ([]Document, error)
	AllDocuments(ctx context.Context) ([]Document, error)
}

// Engine is a full-text index.
type Engine interface {
	Healthy() bool
	Search(ctx context.Context, q Query) ([]Hit, error)
	Index(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids []string) error
}

// snippet cuts text around the first occurrence of term. Matching is done
// rune by rune so offsets stay valid when case mapping changes byte length.
func snippet(text, term string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	start := 0
	if idx := indexFold(runes, []rune(term)); idx > 0 {
		start = idx - width/4
		if start < 0 {
			start = 0
		}
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
	}
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

// indexFold returns the rune offset of the first case-insensitive match of
// needle in haystack, or -1.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
