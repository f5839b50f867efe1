package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/pages"
)

var _ pages.Repository = (*PageRepository)(nil)

type PageRepository struct {
	conn
}

var pageTranslations = translationTable{
	name:        "page_translations",
	ownerColumn: "page_id",
	columns:     []string{"title", "body", "body_doc", "meta_title", "meta_description"},
}

const pageColumns = `p.id, p.slug, p.template, p.status, p.created_at, p.updated_at`

func scanPage(row pgx.Row) (pages.Page, error) {
	var p pages.Page
	err := row.Scan(&p.ID, &p.Slug, &p.Template, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPageTranslation(rows pgx.Rows, owner, locale *string) (pages.Translation, error) {
	var t pages.Translation
	var doc []byte
	err := rows.Scan(owner, locale, &t.Title, &t.Body, &doc, &t.MetaTitle, &t.MetaDescription)
	t.BodyDoc = doc
	return t, err
}

func (r *PageRepository) List(ctx context.Context, params content.ListParams) (content.Page[pages.Page], error) {
	q := r.queryer()

	var cursorTime *time.Time
	var cursorID *string
	if params.After != "" {
		cursor, err := pagination.DecodeTimeCursor(params.After)
		if err != nil {
			return content.Page[pages.Page]{}, err
		}
		ts := cursor.Timestamp.UTC()
		cursorTime, cursorID = &ts, &cursor.ID
	}
	limit := params.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	rows, err := q.Query(ctx, `
SELECT `+pageColumns+`
  FROM pages p
 WHERE ($1 = '' OR p.status = $1)
   AND ($2 = '' OR p.slug ILIKE $2 OR EXISTS (
         SELECT 1 FROM page_translations t WHERE t.page_id = p.id AND t.title ILIKE $2))
   AND ($3::timestamptz IS NULL OR (p.created_at, p.id) < ($3::timestamptz, $4::text))
 ORDER BY p.created_at DESC, p.id DESC
 LIMIT $5
`, string(params.Status), likePattern(params.Query), cursorTime, cursorID, limit+1)
	if err != nil {
		return content.Page[pages.Page]{}, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	items := make([]pages.Page, 0, limit+1)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return content.Page[pages.Page]{}, fmt.Errorf("scan pages: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return content.Page[pages.Page]{}, fmt.Errorf("iterate pages: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[pages.Page]{}, err
	}
	return content.Paginate(items, limit, func(p pages.Page) string {
		return pagination.EncodeTimeCursor(p.CreatedAt, p.ID)
	}), nil
}

func (r *PageRepository) attach(ctx context.Context, q queryer, items []pages.Page) error {
	owners := make([]string, len(items))
	for i, p := range items {
		owners[i] = p.ID
	}
	translations, err := loadTranslations(ctx, q, pageTranslations, owners, scanPageTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]pages.Translation{}
		}
	}
	return nil
}

func (r *PageRepository) Get(ctx context.Context, id string) (*pages.Page, error) {
	return r.getBy(ctx, "p.id", id)
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*pages.Page, error) {
	return r.getBy(ctx, "p.slug", slug)
}

func (r *PageRepository) getBy(ctx context.Context, column, value string) (*pages.Page, error) {
	q := r.queryer()
	p, err := scanPage(q.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages p WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	items := []pages.Page{p}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func pageTranslationRows(translations map[string]pages.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Title, t.Body, nullableJSON(t.BodyDoc), t.MetaTitle, t.MetaDescription})
	}
	return rows
}

func (r *PageRepository) Create(ctx context.Context, page pages.Page) (*pages.Page, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO pages (id, slug, template, status)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at
`, page.ID, page.Slug, page.Template, page.Status).Scan(&page.CreatedAt, &page.UpdatedAt); err != nil {
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("insert page: %w", err)
		}
		return pageTranslations.replace(ctx, q, page.ID, pageTranslationRows(page.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *PageRepository) Update(ctx context.Context, page pages.Page) (*pages.Page, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE pages SET slug = $2, template = $3, status = $4, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, page.ID, page.Slug, page.Template, page.Status).Scan(&page.CreatedAt, &page.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("update page: %w", err)
		}
		return pageTranslations.replace(ctx, q, page.ID, pageTranslationRows(page.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Delete removes a page; menu items pointing at it keep their place with
// page_id cleared.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "pages", id)
}
