package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/media"
)

var _ media.Repository = (*MediaRepository)(nil)

type MediaRepository struct {
	conn
}

const mediaColumns = `id, backend, key, url, original_name, content_type, kind, size, alt, status, variant_of,
       compressed_url, created_at, updated_at`

func scanMedia(row pgx.Row) (media.Media, error) {
	var m media.Media
	err := row.Scan(&m.ID, &m.Backend, &m.Key, &m.URL, &m.OriginalName, &m.ContentType, &m.Kind, &m.Size, &m.Alt,
		&m.Status, &m.VariantOf, &m.CompressedURL, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *MediaRepository) List(ctx context.Context, filters media.Filters) (content.Page[media.Media], error) {
	var cursorTime *time.Time
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeTimeCursor(filters.After)
		if err != nil {
			return content.Page[media.Media]{}, err
		}
		ts := cursor.Timestamp.UTC()
		cursorTime, cursorID = &ts, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	rows, err := r.queryer().Query(ctx, `
SELECT `+mediaColumns+`
  FROM media
 WHERE ($1 = '' OR kind = $1)
   AND ($2 = '' OR original_name ILIKE $2 OR alt ILIKE $2)
   AND ($3::timestamptz IS NULL OR (created_at, id) < ($3::timestamptz, $4::text))
 ORDER BY created_at DESC, id DESC
 LIMIT $5
`, string(filters.Kind), likePattern(filters.Query), cursorTime, cursorID, limit+1)
	if err != nil {
		return content.Page[media.Media]{}, fmt.Errorf("list media: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (media.Media, error) {
		return scanMedia(row)
	})
	if err != nil {
		return content.Page[media.Media]{}, fmt.Errorf("scan media: %w", err)
	}
	return content.Paginate(items, limit, func(m media.Media) string {
		return pagination.EncodeTimeCursor(m.CreatedAt, m.ID)
	}), nil
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*media.Media, error) {
	m, err := scanMedia(r.queryer().QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	return &m, nil
}

func (r *MediaRepository) Create(ctx context.Context, m media.Media) (*media.Media, error) {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO media (id, backend, key, url, original_name, content_type, kind, size, alt, status, variant_of, compressed_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at
`, m.ID, m.Backend, m.Key, m.URL, m.OriginalName, m.ContentType, string(m.Kind), m.Size, m.Alt, string(m.Status),
		m.VariantOf, m.CompressedURL).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	return &m, nil
}

func (r *MediaRepository) UpdateAlt(ctx context.Context, id, alt string) (*media.Media, error) {
	m, err := scanMedia(r.queryer().QueryRow(ctx, `
UPDATE media SET alt = $2, updated_at = now() WHERE id = $1
RETURNING `+mediaColumns, id, alt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("update media alt: %w", err)
	}
	return &m, nil
}

// MarkStatus sets the processing status. An empty compressedURL keeps the
// stored one.
func (r *MediaRepository) MarkStatus(ctx context.Context, id string, status media.Status, compressedURL string) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE media
   SET status = $2,
       compressed_url = CASE WHEN $3 = '' THEN compressed_url ELSE $3 END,
       updated_at = now()
 WHERE id = $1
`, id, string(status), compressedURL)
	if err != nil {
		return fmt.Errorf("mark media status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "media", id)
}

func (r *MediaRepository) Stats(ctx context.Context) (media.Stats, error) {
	var stats media.Stats
	if err := r.queryer().QueryRow(ctx, `SELECT count(*), COALESCE(SUM(size), 0)::bigint FROM media`).
		Scan(&stats.Count, &stats.Bytes); err != nil {
		return media.Stats{}, fmt.Errorf("media stats: %w", err)
	}
	return stats, nil
}
