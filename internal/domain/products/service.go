package products

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
		logger:   logger.With().Str("component", "products").Logger(),
	}
}

// ParseFilters reads the product list query (q, status, category, limit, after).
func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	return Filters{ListParams: params, Category: strings.TrimSpace(values.Get("category"))}, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[Product], error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	product, err := s.build(in)
	if err != nil {
		return nil, err
	}
	product.ID = ids.NewULID()

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("product_id", created.ID).Str("slug", created.Slug).Msg("product created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeProduct, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	product, err := s.build(in)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeProduct, ID: updated.ID})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeProduct, ID: id, Deleted: true})
	return nil
}

// PublicList returns published products localized to locale.
func (s *Service) PublicList(ctx context.Context, locale string, values url.Values) (content.Page[View], error) {
	filters, err := ParseFilters(values)
	if err != nil {
		return content.Page[View]{}, err
	}
	filters.Status = content.StatusPublished

	page, err := s.repo.List(ctx, filters)
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

// PublicGet returns a published product by slug; drafts are reported as not found.
func (s *Service) PublicGet(ctx context.Context, locale, slug string) (content.Localized[View], error) {
	product, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return content.Localized[View]{}, err
	}
	if product.Status != content.StatusPublished {
		return content.Localized[View]{}, content.ErrNotFound
	}
	view, meta := Localize(s.locales, locale, *product)
	return content.Localized[View]{Data: view, Meta: meta}, nil
}

// Categories lists the distinct categories of published products.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx, content.StatusPublished)
}

func (s *Service) build(in Input) (Product, error) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Product{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	product := Product{
		Category:     sanitize.Text(strings.TrimSpace(in.Category)),
		SKU:          sanitize.Text(strings.TrimSpace(in.SKU)),
		Price:        in.Price,
		Currency:     in.Currency,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Gallery:      trimAll(in.Gallery),
		Status:       in.Status.OrDraft(),
		SortOrder:    in.SortOrder,
		Translations: make(map[string]Translation, len(in.Translations)),
	}

	for locale, tr := range in.Translations {
		doc, err := tr.Body.DocJSON()
		if err != nil {
			problems.Add("translations["+locale+"].body", "invalid document")
			continue
		}
		product.Translations[locale] = Translation{
			Name:            sanitize.Text(strings.TrimSpace(tr.Name)),
			Summary:         sanitize.Text(strings.TrimSpace(tr.Summary)),
			Body:            tr.Body.HTML(),
			BodyDoc:         doc,
			MetaTitle:       sanitize.Text(strings.TrimSpace(tr.MetaTitle)),
			MetaDescription: sanitize.Text(strings.TrimSpace(tr.MetaDescription)),
		}
	}

	product.Slug = content.NormalizeSlug(in.Slug, product.Translations[s.locales.Default].Name)
	if product.Slug == "" {
		problems.Add("slug", "could not derive a slug; provide one")
	}

	if err := problems.Err(); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Localize resolves a product to one locale, falling back per i18n.Resolve.
func Localize(set i18n.Set, locale string, p Product) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, p.Translations)
	return View{
		ID:              p.ID,
		Slug:            p.Slug,
		Category:        p.Category,
		SKU:             p.SKU,
		Price:           p.Price,
		Currency:        p.Currency,
		ImageURL:        p.ImageURL,
		Gallery:         p.Gallery,
		Locale:          meta.ResolvedLocale,
		Name:            tr.Name,
		Summary:         tr.Summary,
		Body:            tr.Body,
		MetaTitle:       tr.MetaTitle,
		MetaDescription: tr.MetaDescription,
	}, meta
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
