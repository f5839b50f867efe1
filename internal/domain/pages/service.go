package pages

import (
	"context"
	"net/url"
	"strings"

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
}

func NewService(repo Repository, locales i18n.Set, notifier content.Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = content.NopNotifier
	}
	return &Service{
		repo:     repo,
		locales:  locales,
		notifier: notifier,
		logger:   logger.With().Str("component", "pages").Logger(),
	}
}

func ParseFilters(values url.Values) (content.ListParams, error) {
	return content.ParseListParams(values)
}

func (s *Service) List(ctx context.Context, params content.ListParams) (content.Page[Page], error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, id string) (*Page, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Page, error) {
	page, err := s.build(in)
	if err != nil {
		return nil, err
	}
	page.ID = ids.NewULID()

	created, err := s.repo.Create(ctx, page)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("page_id", created.ID).Str("slug", created.Slug).Msg("page created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypePage, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Page, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	page, err := s.build(in)
	if err != nil {
		return nil, err
	}
	page.ID = existing.ID
	page.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, page)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypePage, ID: updated.ID})
	return updated, nil
}

// Delete removes a page. Menu items pointing at it keep existing with no page.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("page_id", id).Msg("page deleted")
	s.notifier.Notify(ctx, content.Change{Type: content.TypePage, ID: id, Deleted: true})
	return nil
}

func (s *Service) PublicGet(ctx context.Context, locale, slug string) (content.Localized[View], error) {
	page, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return content.Localized[View]{}, err
	}
	if page.Status != content.StatusPublished {
		return content.Localized[View]{}, content.ErrNotFound
	}
	view, meta := Localize(s.locales, locale, *page)
	return content.Localized[View]{Data: view, Meta: meta}, nil
}

func (s *Service) build(in Input) (Page, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Page{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	page := Page{
		Template:     in.Template,
		Status:       in.Status.OrDraft(),
		Translations: make(map[string]Translation, len(in.Translations)),
	}
	if page.Template == "" {
		page.Template = "default"
	}

	for locale, tr := range in.Translations {
		doc, err := tr.Body.DocJSON()
		if err != nil {
			problems.Add("translations["+locale+"].body", "invalid document")
			continue
		}
		page.Translations[locale] = Translation{
			Title:           sanitize.Text(strings.TrimSpace(tr.Title)),
			Body:            tr.Body.HTML(),
			BodyDoc:         doc,
			MetaTitle:       sanitize.Text(strings.TrimSpace(tr.MetaTitle)),
			MetaDescription: sanitize.Text(strings.TrimSpace(tr.MetaDescription)),
		}
	}

	page.Slug = content.NormalizeSlug(in.Slug, page.Translations[s.locales.Default].Title)
	if page.Slug == "" {
		problems.Add("slug", "could not derive a slug; provide one")
	}

	if err := problems.Err(); err != nil {
		return Page{}, err
	}
	return page, nil
}

func Localize(set i18n.Set, locale string, p Page) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, p.Translations)
	return View{
		ID:              p.ID,
		Slug:            p.Slug,
		Template:        p.Template,
		Locale:          meta.ResolvedLocale,
		Title:           tr.Title,
		Body:            tr.Body,
		MetaTitle:       tr.MetaTitle,
		MetaDescription: tr.MetaDescription,
	}, meta
}
