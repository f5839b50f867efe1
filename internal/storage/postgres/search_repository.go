package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/sanitize"
	"github.com/vitrin-cms/server/internal/search"
)

var _ search.Store = (*SearchRepository)(nil)

// SearchRepository reads published translations as search documents and
// serves the ILIKE fallback search.
type SearchRepository struct {
	conn
}

const searchDocuments = `
WITH docs AS (
  SELECT 'product' AS type, p.id AS entity_id, t.locale, p.slug, t.name AS title,
         concat_ws(' ', t.summary, t.body) AS text, p.updated_at
    FROM products p JOIN product_translations t ON t.product_id = p.id
   WHERE p.status = 'published'
  UNION ALL
  SELECT 'blog', b.id, t.locale, b.slug, t.title, concat_ws(' ', t.excerpt, t.body), b.updated_at
    FROM blog_posts b JOIN blog_post_translations t ON t.post_id = b.id
   WHERE b.status = 'published'
  UNION ALL
  SELECT 'event', e.id, t.locale, e.slug, t.title, concat_ws(' ', t.summary, t.body), e.updated_at
    FROM events e JOIN event_translations t ON t.event_id = e.id
   WHERE e.status = 'published'
  UNION ALL
  SELECT 'page', g.id, t.locale, g.slug, t.title, t.body, g.updated_at
    FROM pages g JOIN page_translations t ON t.page_id = g.id
   WHERE g.status = 'published'
)
`

func (r *SearchRepository) Search(ctx context.Context, q search.Query) ([]search.Hit, error) {
	pattern := likePattern(q.Text)
	rows, err := r.queryer().Query(ctx, searchDocuments+`
SELECT type, entity_id, locale, slug, title, text
  FROM docs
 WHERE ($1 = '' OR locale = $1)
   AND ($2 = '' OR type = $2)
   AND (title ILIKE $3 OR text ILIKE $3)
 ORDER BY (title ILIKE $3) DESC, updated_at DESC
 LIMIT $4
`, q.Locale, q.Type, pattern, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (search.Hit, error) {
		var h search.Hit
		var text string
		if err := row.Scan(&h.Type, &h.EntityID, &h.Locale, &h.Slug, &h.Title, &text); err != nil {
			return h, err
		}
		h.Snippet = sanitize.PlainText(text)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan search hits: %w", err)
	}
	return hits, nil
}

func (r *SearchRepository) Documents(ctx context.Context, typ, entityID string) ([]search.Document, error) {
	return r.documents(ctx, `WHERE type = $1 AND entity_id = $2`, typ, entityID)
}

func (r *SearchRepository) AllDocuments(ctx context.Context) ([]search.Document, error) {
	return r.documents(ctx, ``)
}

func (r *SearchRepository) documents(ctx context.Context, where string, args ...any) ([]search.Document, error) {
	rows, err := r.queryer().Query(ctx, searchDocuments+`
SELECT type, entity_id, locale, slug, title, text FROM docs `+where+`
 ORDER BY type, entity_id, locale
`, args...)
	if err != nil {
		return nil, fmt.Errorf("load search documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (search.Document, error) {
		var d search.Document
		var text string
		if err := row.Scan(&d.Type, &d.EntityID, &d.Locale, &d.Slug, &d.Title, &text); err != nil {
			return d, err
		}
		d.ID = search.DocumentID(d.Type, d.EntityID, d.Locale)
		d.Text = sanitize.PlainText(text)
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan search documents: %w", err)
	}
	return docs, nil
}
