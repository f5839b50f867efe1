package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/sliders"
)

var _ sliders.Repository = (*SliderRepository)(nil)

type SliderRepository struct {
	conn
}

var sliderTranslations = translationTable{
	name:        "slider_translations",
	ownerColumn: "slider_id",
	columns:     []string{"title", "subtitle", "button_text"},
}

const sliderColumns = `s.id, s.image_url, s.mobile_image_url, s.link_url, s.sort_order, s.status, s.starts_at, s.ends_at,
       s.created_at, s.updated_at`

func scanSlider(row pgx.Row) (sliders.Slider, error) {
	var s sliders.Slider
	err := row.Scan(&s.ID, &s.ImageURL, &s.MobileImageURL, &s.LinkURL, &s.SortOrder, &s.Status, &s.StartsAt, &s.EndsAt,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanSliderTranslation(rows pgx.Rows, owner, locale *string) (sliders.Translation, error) {
	var t sliders.Translation
	err := rows.Scan(owner, locale, &t.Title, &t.Subtitle, &t.ButtonText)
	return t, err
}

func (r *SliderRepository) List(ctx context.Context, filters sliders.Filters) (content.Page[sliders.Slider], error) {
	q := r.queryer()

	var cursorPos *int
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeOrderCursor(filters.After)
		if err != nil {
			return content.Page[sliders.Slider]{}, err
		}
		cursorPos, cursorID = &cursor.Position, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}
	var visibleAt *time.Time
	if filters.VisibleAt != nil {
		t := filters.VisibleAt.UTC()
		visibleAt = &t
	}

	rows, err := q.Query(ctx, `
SELECT `+sliderColumns+`
  FROM sliders s
 WHERE ($1 = '' OR s.status = $1)
   AND ($2::timestamptz IS NULL OR (
         (s.starts_at IS NULL OR s.starts_at <= $2::timestamptz) AND
         (s.ends_at IS NULL OR s.ends_at > $2::timestamptz)))
   AND ($3 = '' OR EXISTS (
         SELECT 1 FROM slider_translations t
          WHERE t.slider_id = s.id AND (t.title ILIKE $3 OR t.subtitle ILIKE $3)))
   AND ($4::int IS NULL OR (s.sort_order, s.id) > ($4::int, $5::text))
 ORDER BY s.sort_order ASC, s.id ASC
 LIMIT $6
`, string(filters.Status), visibleAt, likePattern(filters.Query), cursorPos, cursorID, limit+1)
	if err != nil {
		return content.Page[sliders.Slider]{}, fmt.Errorf("list sliders: %w", err)
	}
	defer rows.Close()

	items := make([]sliders.Slider, 0, limit+1)
	for rows.Next() {
		s, err := scanSlider(rows)
		if err != nil {
			return content.Page[sliders.Slider]{}, fmt.Errorf("scan sliders: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return content.Page[sliders.Slider]{}, fmt.Errorf("iterate sliders: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[sliders.Slider]{}, err
	}
	return content.Paginate(items, limit, func(s sliders.Slider) string {
		return pagination.EncodeOrderCursor(s.SortOrder, s.ID)
	}), nil
}

func (r *SliderRepository) attach(ctx context.Context, q queryer, items []sliders.Slider) error {
	owners := make([]string, len(items))
	for i, s := range items {
		owners[i] = s.ID
	}
	translations, err := loadTranslations(ctx, q, sliderTranslations, owners, scanSliderTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]sliders.Translation{}
		}
	}
	return nil
}

func (r *SliderRepository) Get(ctx context.Context, id string) (*sliders.Slider, error) {
	q := r.queryer()
	s, err := scanSlider(q.QueryRow(ctx, `SELECT `+sliderColumns+` FROM sliders s WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get slider: %w", err)
	}
	items := []sliders.Slider{s}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func sliderTranslationRows(translations map[string]sliders.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Title, t.Subtitle, t.ButtonText})
	}
	return rows
}

func (r *SliderRepository) Create(ctx context.Context, slider sliders.Slider) (*sliders.Slider, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO sliders (id, image_url, mobile_image_url, link_url, sort_order, status, starts_at, ends_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at
`, slider.ID, slider.ImageURL, slider.MobileImageURL, slider.LinkURL, slider.SortOrder, slider.Status, slider.StartsAt, slider.EndsAt,
		).Scan(&slider.CreatedAt, &slider.UpdatedAt); err != nil {
			return fmt.Errorf("insert slider: %w", err)
		}
		return sliderTranslations.replace(ctx, q, slider.ID, sliderTranslationRows(slider.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &slider, nil
}

func (r *SliderRepository) Update(ctx context.Context, slider sliders.Slider) (*sliders.Slider, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE sliders
   SET image_url = $2, mobile_image_url = $3, link_url = $4, sort_order = $5, status = $6, starts_at = $7,
       ends_at = $8, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, slider.ID, slider.ImageURL, slider.MobileImageURL, slider.LinkURL, slider.SortOrder, slider.Status, slider.StartsAt, slider.EndsAt,
		).Scan(&slider.CreatedAt, &slider.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			return fmt.Errorf("update slider: %w", err)
		}
		return sliderTranslations.replace(ctx, q, slider.ID, sliderTranslationRows(slider.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &slider, nil
}

func (r *SliderRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "sliders", id)
}

func (r *SliderRepository) NextSortOrder(ctx context.Context) (int, error) {
	return nextSortOrder(ctx, r.queryer(), "sliders")
}

func (r *SliderRepository) Reorder(ctx context.Context, ids []string) error {
	return r.reorder(ctx, "sliders", ids)
}
