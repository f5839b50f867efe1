package blogs

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
		logger:   logger.With().Str("component", "blogs").Logger(),
		now:      time.Now,
	}
}

func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	return Filters{ListParams: params, Tag: strings.ToLower(strings.TrimSpace(values.Get("tag")))}, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[Post], error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Post, error) {
	post, err := s.build(in, nil)
	if err != nil {
		return nil, err
	}
	post.ID = ids.NewULID()

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("post_id", created.ID).Str("slug", created.Slug).Msg("blog post created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeBlog, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Post, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := s.build(in, existing)
	if err != nil {
		return nil, err
	}
	post.ID = existing.ID
	post.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeBlog, ID: updated.ID})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("post_id", id).Msg("blog post deleted")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeBlog, ID: id, Deleted: true})
	return nil
}

// PublicList returns published posts, newest first.
func (s *Service) PublicList(ctx context.Context, locale string, values url.Values) (content.Page[View], error) {
	filters, err := ParseFilters(values)
	if err != nil {
		return content.Page[View]{}, err
	}
	filters.Status = content.StatusPublished
	filters.Newest = true

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

func (s *Service) PublicGet(ctx context.Context, locale, slug string) (content.Localized[View], error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return content.Localized[View]{}, err
	}
	if post.Status != content.StatusPublished {
		return content.Localized[View]{}, content.ErrNotFound
	}
	view, meta := Localize(s.locales, locale, *post)
	return content.Localized[View]{Data: view, Meta: meta}, nil
}

func (s *Service) build(in Input, existing *Post) (Post, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Post{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	post := Post{
		Author:        sanitize.Text(strings.TrimSpace(in.Author)),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		Tags:          normalizeTags(in.Tags),
		Status:        in.Status.OrDraft(),
		PublishedAt:   in.PublishedAt,
		Translations:  make(map[string]Translation, len(in.Translations)),
	}

	// The first publication date sticks unless the editor sets one explicitly.
	if post.PublishedAt == nil && existing != nil {
		post.PublishedAt = existing.PublishedAt
	}
	if post.Status == content.StatusPublished && post.PublishedAt == nil {
		now := s.now().UTC()
		post.PublishedAt = &now
	}

	for locale, tr := range in.Translations {
		doc, err := tr.Body.DocJSON()
		if err != nil {
			problems.Add("translations["+locale+"].body", "invalid document")
			continue
		}
		body := tr.Body.HTML()
		excerpt := sanitize.Text(strings.TrimSpace(tr.Excerpt))
		if excerpt == "" {
			excerpt = sanitize.Excerpt(body, ExcerptLength)
		}
		post.Translations[locale] = Translation{
			Title:           sanitize.Text(strings.TrimSpace(tr.Title)),
			Excerpt:         excerpt,
			Body:            body,
			BodyDoc:         doc,
			ReadingMinutes:  sanitize.ReadingMinutes(body),
			MetaTitle:       sanitize.Text(strings.TrimSpace(tr.MetaTitle)),
			MetaDescription: sanitize.Text(strings.TrimSpace(tr.MetaDescription)),
		}
	}

	if post.CoverImageURL == "" {
		if tr, ok := post.Translations[s.locales.Default]; ok {
			post.CoverImageURL = sanitize.FirstImage(tr.Body)
		}
	}

	post.Slug = content.NormalizeSlug(in.Slug, post.Translations[s.locales.Default].Title)
	if post.Slug == "" {
		problems.Add("slug", "could not derive a slug; provide one")
	}

	if err := problems.Err(); err != nil {
		return Post{}, err
	}
	return post, nil
}

func Localize(set i18n.Set, locale string, p Post) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, p.Translations)
	return View{
		ID:              p.ID,
		Slug:            p.Slug,
		Author:          p.Author,
		CoverImageURL:   p.CoverImageURL,
		Tags:            p.Tags,
		PublishedAt:     p.PublishedAt,
		Locale:          meta.ResolvedLocale,
		Title:           tr.Title,
		Excerpt:         tr.Excerpt,
		Body:            tr.Body,
		ReadingMinutes:  tr.ReadingMinutes,
		MetaTitle:       tr.MetaTitle,
		MetaDescription: tr.MetaDescription,
	}, meta
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(sanitize.Text(tag)))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
