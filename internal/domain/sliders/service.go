package sliders

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
		logger:   logger.With().Str("component", "sliders").Logger(),
		now:      time.Now,
	}
}

func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	return Filters{ListParams: params}, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[Slider], error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (*Slider, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Slider, error) {
	slider, err := s.build(in)
	if err != nil {
		return nil, err
	}
	slider.ID = ids.NewULID()
	if in.SortOrder == nil {
		next, err := s.repo.NextSortOrder(ctx)
		if err != nil {
			return nil, err
		}
		slider.SortOrder = next
	}

	created, err := s.repo.Create(ctx, slider)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("slider_id", created.ID).Msg("slider created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeSlider, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Slider, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slider, err := s.build(in)
	if err != nil {
		return nil, err
	}
	slider.ID = existing.ID
	slider.CreatedAt = existing.CreatedAt
	if in.SortOrder == nil {
		slider.SortOrder = existing.SortOrder
	}

	updated, err := s.repo.Update(ctx, slider)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeSlider, ID: updated.ID})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeSlider, ID: id, Deleted: true})
	return nil
}

func (s *Service) Reorder(ctx context.Context, sliderIDs []string) error {
	sliderIDs, err := content.CheckReorder(sliderIDs)
	if err != nil {
		return err
	}
	if err := s.repo.Reorder(ctx, sliderIDs); err != nil {
		return err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeSlider})
	return nil
}

// PublicList returns published sliders whose visibility window contains now.
func (s *Service) PublicList(ctx context.Context, locale string, values url.Values) (content.Page[View], error) {
	filters, err := ParseFilters(values)
	if err != nil {
		return content.Page[View]{}, err
	}
	now := s.now().UTC()
	filters.Status = content.StatusPublished
	filters.VisibleAt = &now

	page, err := s.repo.List(ctx, filters)
	if err != nil {
		return content.Page[View]{}, err
	}
	views := make([]View, 0, len(page.Items))
	for _, item := range page.Items {
		if !item.VisibleAt(now) {
			continue
		}
		view, _ := Localize(s.locales, locale, item)
		views = append(views, view)
	}
	return content.Page[View]{Items: views, NextCursor: page.NextCursor}, nil
}

// VisibleAt reports whether t falls inside the slider's optional window.
func (sl Slider) VisibleAt(t time.Time) bool {
	if sl.StartsAt != nil && t.Before(*sl.StartsAt) {
		return false
	}
	if sl.EndsAt != nil && !t.Before(*sl.EndsAt) {
		return false
	}
	return true
}

func (s *Service) build(in Input) (Slider, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Slider{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		problems.Add("ends_at", "must be on or after starts_at")
	}
	if link := strings.TrimSpace(in.LinkURL); link != "" && !validLink(link) {
		problems.Add("link_url", "must be an absolute URL or a site path")
	}

	slider := Slider{
		ImageURL:       strings.TrimSpace(in.ImageURL),
		MobileImageURL: strings.TrimSpace(in.MobileImageURL),
		LinkURL:        strings.TrimSpace(in.LinkURL),
		Status:         in.Status.OrDraft(),
		StartsAt:       utc(in.StartsAt),
		EndsAt:         utc(in.EndsAt),
		Translations:   make(map[string]Translation, len(in.Translations)),
	}
	if in.SortOrder != nil {
		slider.SortOrder = *in.SortOrder
	}
	for locale, tr := range in.Translations {
		slider.Translations[locale] = Translation{
			Title:      sanitize.Text(strings.TrimSpace(tr.Title)),
			Subtitle:   sanitize.Text(strings.TrimSpace(tr.Subtitle)),
			ButtonText: sanitize.Text(strings.TrimSpace(tr.ButtonText)),
		}
	}

	if err := problems.Err(); err != nil {
		return Slider{}, err
	}
	return slider, nil
}

// validLink accepts http(s) URLs and root-relative paths.
func validLink(link string) bool {
	if strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//") {
		return true
	}
	u, err := url.Parse(link)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func Localize(set i18n.Set, locale string, sl Slider) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, sl.Translations)
	return View{
		ID:             sl.ID,
		ImageURL:       sl.ImageURL,
		MobileImageURL: sl.MobileImageURL,
		LinkURL:        sl.LinkURL,
		Locale:         meta.ResolvedLocale,
		Title:          tr.Title,
		Subtitle:       tr.Subtitle,
		ButtonText:     tr.ButtonText,
	}, meta
}
