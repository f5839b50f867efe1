package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	conn
}

var eventTranslations = translationTable{
	name:        "event_translations",
	ownerColumn: "event_id",
	columns:     []string{"title", "summary", "body", "body_doc"},
}

const eventColumns = `e.id, e.slug, e.starts_at, e.ends_at, e.timezone, e.location, e.online_url, e.cover_image_url,
       e.status, e.created_at, e.updated_at`

func scanEvent(row pgx.Row) (events.Event, error) {
	var e events.Event
	err := row.Scan(&e.ID, &e.Slug, &e.StartsAt, &e.EndsAt, &e.Timezone, &e.Location, &e.OnlineURL, &e.CoverImageURL,
		&e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func scanEventTranslation(rows pgx.Rows, owner, locale *string) (events.Translation, error) {
	var t events.Translation
	var doc []byte
	err := rows.Scan(owner, locale, &t.Title, &t.Summary, &t.Body, &doc)
	t.BodyDoc = doc
	return t, err
}

// List orders by start time. Upcoming keeps events starting at or after From.
func (r *EventRepository) List(ctx context.Context, filters events.Filters) (content.Page[events.Event], error) {
	q := r.queryer()

	var cursorTime *time.Time
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeTimeCursor(filters.After)
		if err != nil {
			return content.Page[events.Event]{}, err
		}
		ts := cursor.Timestamp.UTC()
		cursorTime, cursorID = &ts, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}
	var from *time.Time
	if filters.Upcoming {
		f := filters.From.UTC()
		from = &f
	}

	rows, err := q.Query(ctx, `
SELECT `+eventColumns+`
  FROM events e
 WHERE ($1 = '' OR e.status = $1)
   AND ($2::timestamptz IS NULL OR e.starts_at >= $2::timestamptz)
   AND ($3 = '' OR e.location ILIKE $3 OR EXISTS (
         SELECT 1 FROM event_translations t
          WHERE t.event_id = e.id AND (t.title ILIKE $3 OR t.summary ILIKE $3)))
   AND ($4::timestamptz IS NULL OR (e.starts_at, e.id) > ($4::timestamptz, $5::text))
 ORDER BY e.starts_at ASC, e.id ASC
 LIMIT $6
`, string(filters.Status), from, likePattern(filters.Query), cursorTime, cursorID, limit+1)
	if err != nil {
		return content.Page[events.Event]{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, limit+1)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return content.Page[events.Event]{}, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return content.Page[events.Event]{}, fmt.Errorf("iterate events: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[events.Event]{}, err
	}
	return content.Paginate(items, limit, func(e events.Event) string {
		return pagination.EncodeTimeCursor(e.StartsAt, e.ID)
	}), nil
}

func (r *EventRepository) attach(ctx context.Context, q queryer, items []events.Event) error {
	owners := make([]string, len(items))
	for i, e := range items {
		owners[i] = e.ID
	}
	translations, err := loadTranslations(ctx, q, eventTranslations, owners, scanEventTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]events.Translation{}
		}
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*events.Event, error) {
	return r.getBy(ctx, "e.id", id)
}

func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*events.Event, error) {
	return r.getBy(ctx, "e.slug", slug)
}

func (r *EventRepository) getBy(ctx context.Context, column, value string) (*events.Event, error) {
	q := r.queryer()
	e, err := scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	items := []events.Event{e}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func eventTranslationRows(translations map[string]events.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Title, t.Summary, t.Body, nullableJSON(t.BodyDoc)})
	}
	return rows
}

func (r *EventRepository) Create(ctx context.Context, event events.Event) (*events.Event, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO events (id, slug, starts_at, ends_at, timezone, location, online_url, cover_image_url, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at
`, event.ID, event.Slug, event.StartsAt, event.EndsAt, event.Timezone, event.Location, event.OnlineURL,
			event.CoverImageURL, event.Status,
		).Scan(&event.CreatedAt, &event.UpdatedAt); err != nil {
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("insert event: %w", err)
		}
		return eventTranslations.replace(ctx, q, event.ID, eventTranslationRows(event.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, event events.Event) (*events.Event, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE events
   SET slug = $2, starts_at = $3, ends_at = $4, timezone = $5, location = $6, online_url = $7,
       cover_image_url = $8, status = $9, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, event.ID, event.Slug, event.StartsAt, event.EndsAt, event.Timezone, event.Location, event.OnlineURL,
			event.CoverImageURL, event.Status,
		).Scan(&event.CreatedAt, &event.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("update event: %w", err)
		}
		return eventTranslations.replace(ctx, q, event.ID, eventTranslationRows(event.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "events", id)
}
