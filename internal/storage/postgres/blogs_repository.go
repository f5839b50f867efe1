package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/blogs"
	"github.com/vitrin-cms/server/internal/domain/content"
)

var _ blogs.Repository = (*BlogRepository)(nil)

type BlogRepository struct {
	conn
}

var blogTranslations = translationTable{
	name:        "blog_post_translations",
	ownerColumn: "post_id",
	columns:     []string{"title", "excerpt", "body", "body_doc", "reading_minutes", "meta_title", "meta_description"},
}

const blogColumns = `b.id, b.slug, b.author, b.cover_image_url, b.tags, b.status, b.published_at, b.created_at, b.updated_at`

func scanBlog(row pgx.Row) (blogs.Post, error) {
	var p blogs.Post
	err := row.Scan(&p.ID, &p.Slug, &p.Author, &p.CoverImageURL, &p.Tags, &p.Status, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

func scanBlogTranslation(rows pgx.Rows, owner, locale *string) (blogs.Translation, error) {
	var t blogs.Translation
	var doc []byte
	err := rows.Scan(owner, locale, &t.Title, &t.Excerpt, &t.Body, &doc, &t.ReadingMinutes, &t.MetaTitle, &t.MetaDescription)
	t.BodyDoc = doc
	return t, err
}

// List orders by creation time, or by publication time when Newest is set.
// Both orders page with a (timestamp, id) cursor.
func (r *BlogRepository) List(ctx context.Context, filters blogs.Filters) (content.Page[blogs.Post], error) {
	q := r.queryer()

	var cursorTime *time.Time
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeTimeCursor(filters.After)
		if err != nil {
			return content.Page[blogs.Post]{}, err
		}
		ts := cursor.Timestamp.UTC()
		cursorTime, cursorID = &ts, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	orderColumn := "b.created_at"
	if filters.Newest {
		orderColumn = "COALESCE(b.published_at, b.created_at)"
	}

	rows, err := q.Query(ctx, `
SELECT `+blogColumns+`
  FROM blog_posts b
 WHERE ($1 = '' OR b.status = $1)
   AND ($2 = '' OR $2 = ANY(b.tags))
   AND ($3 = '' OR b.author ILIKE $3 OR EXISTS (
         SELECT 1 FROM blog_post_translations t
          WHERE t.post_id = b.id AND (t.title ILIKE $3 OR t.excerpt ILIKE $3)))
   AND ($4::timestamptz IS NULL OR (`+orderColumn+`, b.id) < ($4::timestamptz, $5::text))
 ORDER BY `+orderColumn+` DESC, b.id DESC
 LIMIT $6
`, string(filters.Status), filters.Tag, likePattern(filters.Query), cursorTime, cursorID, limit+1)
	if err != nil {
		return content.Page[blogs.Post]{}, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	items := make([]blogs.Post, 0, limit+1)
	for rows.Next() {
		p, err := scanBlog(rows)
		if err != nil {
			return content.Page[blogs.Post]{}, fmt.Errorf("scan blog posts: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return content.Page[blogs.Post]{}, fmt.Errorf("iterate blog posts: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[blogs.Post]{}, err
	}

	return content.Paginate(items, limit, func(p blogs.Post) string {
		ts := p.CreatedAt
		if filters.Newest && p.PublishedAt != nil {
			ts = *p.PublishedAt
		}
		return pagination.EncodeTimeCursor(ts, p.ID)
	}), nil
}

func (r *BlogRepository) attach(ctx context.Context, q queryer, items []blogs.Post) error {
	owners := make([]string, len(items))
	for i, p := range items {
		owners[i] = p.ID
	}
	translations, err := loadTranslations(ctx, q, blogTranslations, owners, scanBlogTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]blogs.Translation{}
		}
	}
	return nil
}

func (r *BlogRepository) Get(ctx context.Context, id string) (*blogs.Post, error) {
	return r.getBy(ctx, "b.id", id)
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*blogs.Post, error) {
	return r.getBy(ctx, "b.slug", slug)
}

func (r *BlogRepository) getBy(ctx context.Context, column, value string) (*blogs.Post, error) {
	q := r.queryer()
	p, err := scanBlog(q.QueryRow(ctx, `SELECT `+blogColumns+` FROM blog_posts b WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get blog post: %w", err)
	}
	items := []blogs.Post{p}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func blogTranslationRows(translations map[string]blogs.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Title, t.Excerpt, t.Body, nullableJSON(t.BodyDoc), int32(t.ReadingMinutes), t.MetaTitle, t.MetaDescription})
	}
	return rows
}

func (r *BlogRepository) Create(ctx context.Context, post blogs.Post) (*blogs.Post, error) {
	if post.Tags == nil {
		post.Tags = []string{}
	}
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO blog_posts (id, slug, author, cover_image_url, tags, status, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at
`, post.ID, post.Slug, post.Author, post.CoverImageURL, post.Tags, post.Status, post.PublishedAt,
		).Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("insert blog post: %w", err)
		}
		return blogTranslations.replace(ctx, q, post.ID, blogTranslationRows(post.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *BlogRepository) Update(ctx context.Context, post blogs.Post) (*blogs.Post, error) {
	if post.Tags == nil {
		post.Tags = []string{}
	}
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE blog_posts
   SET slug = $2, author = $3, cover_image_url = $4, tags = $5, status = $6, published_at = $7, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, post.ID, post.Slug, post.Author, post.CoverImageURL, post.Tags, post.Status, post.PublishedAt,
		).Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("update blog post: %w", err)
		}
		return blogTranslations.replace(ctx, q, post.ID, blogTranslationRows(post.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "blog_posts", id)
}
