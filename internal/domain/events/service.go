package events

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/sanitize"
)

type Service struct {
	repo     Repository
	locales  i18n.Set
	notifier content.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, locales i18n.Set, notifier content.Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = content.NopNotifier
	}
	return &Service{
		repo:     repo,
		locales:  locales,
		notifier: notifier,
		logger:   logger.With().Str("component", "events").Logger(),
		now:      time.Now,
	}
}

func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	upcoming, err := content.ParseBool("upcoming", values.Get("upcoming"))
	if err != nil {
		return Filters{}, err
	}
	return Filters{ListParams: params, Upcoming: upcoming}, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[Event], error) {
	if filters.Upcoming && filters.From.IsZero() {
		filters.From = s.now().UTC()
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Event, error) {
	event, err := s.build(in)
	if err != nil {
		return nil, err
	}
	event.ID = ids.NewULID()

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("event_id", created.ID).Time("starts_at", created.StartsAt).Msg("event created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeEvent, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Event, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.build(in)
	if err != nil {
		return nil, err
	}
	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeEvent, ID: updated.ID})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("event_id", id).Msg("event deleted")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeEvent, ID: id, Deleted: true})
	return nil
}

// PublicList returns upcoming published events ordered by start time.
// Passing past=true lists every published event instead.
func (s *Service) PublicList(ctx context.Context, locale string, values url.Values) (content.Page[View], error) {
	filters, err := ParseFilters(values)
	if err != nil {
		return content.Page[View]{}, err
	}
	past, err := content.ParseBool("past", values.Get("past"))
	if err != nil {
		return content.Page[View]{}, err
	}
	filters.Status = content.StatusPublished
	filters.Upcoming = !past

	page, err := s.List(ctx, filters)
	if err != nil {
		return content.Page[View]{}, err
	}
	views := make([]View, 0, len(page.Items))
	for _, item := range page.Items {
		view, _ := Localize(s.locales, locale, item)
		views = append(views, view)
	}
	return content.Page[View]{Items: views, NextCursor: page.NextCursor}, nil
}

func (s *Service) PublicGet(ctx context.Context, locale, slug string) (content.Localized[View], error) {
	event, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return content.Localized[View]{}, err
	}
	if event.Status != content.StatusPublished {
		return content.Localized[View]{}, content.ErrNotFound
	}
	view, meta := Localize(s.locales, locale, *event)
	return content.Localized[View]{Data: view, Meta: meta}, nil
}

func (s *Service) build(in Input) (Event, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Event{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems.Add("timezone", "unknown time zone")
		loc = time.UTC
	}

	event := Event{
		Timezone:      tz,
		Location:      sanitize.Text(strings.TrimSpace(in.Location)),
		OnlineURL:     strings.TrimSpace(in.OnlineURL),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		Status:        in.Status.OrDraft(),
		Translations:  make(map[string]Translation, len(in.Translations)),
	}

	now := s.now()
	if strings.TrimSpace(in.StartsAt) != "" {
		start, err := ParseWhen(in.StartsAt, loc, now, s.locales.Supported)
		if err != nil {
			problems.Add("starts_at", "must be a date, e.g. 2026-03-12T18:00:00Z or 12 March 2026 18:00")
		}
		event.StartsAt = start
	}
	if strings.TrimSpace(in.EndsAt) != "" {
		end, err := ParseWhen(in.EndsAt, loc, now, s.locales.Supported)
		switch {
		case err != nil:
			problems.Add("ends_at", "must be a date")
		case !event.StartsAt.IsZero() && end.Before(event.StartsAt):
			problems.Add("ends_at", "must be on or after starts_at")
		default:
			event.EndsAt = &end
		}
	}

	for locale, tr := range in.Translations {
		doc, err := tr.Body.DocJSON()
		if err != nil {
			problems.Add("translations["+locale+"].body", "invalid document")
			continue
		}
		event.Translations[locale] = Translation{
			Title:   sanitize.Text(strings.TrimSpace(tr.Title)),
			Summary: sanitize.Text(strings.TrimSpace(tr.Summary)),
			Body:    tr.Body.HTML(),
			BodyDoc: doc,
		}
	}

	event.Slug = content.NormalizeSlug(in.Slug, event.Translations[s.locales.Default].Title)
	if event.Slug == "" {
		problems.Add("slug", "could not derive a slug; provide one")
	}

	if err := problems.Err(); err != nil {
		return Event{}, err
	}
	return event, nil
}

func Localize(set i18n.Set, locale string, e Event) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, e.Translations)
	return View{
		ID:            e.ID,
		Slug:          e.Slug,
		StartsAt:      e.StartsAt,
		EndsAt:        e.EndsAt,
		Timezone:      e.Timezone,
		Location:      e.Location,
		OnlineURL:     e.OnlineURL,
		CoverImageURL: e.CoverImageURL,
		Locale:        meta.ResolvedLocale,
		Title:         tr.Title,
		Summary:       tr.Summary,
		Body:          tr.Body,
	}, meta
}
