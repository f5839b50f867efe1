package team

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
		logger:   logger.With().Str("component", "team").Logger(),
	}
}

func ParseFilters(values url.Values) (content.ListParams, error) {
	return content.ParseListParams(values)
}

func (s *Service) List(ctx context.Context, params content.ListParams) (content.Page[Member], error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Member, error) {
	member, err := s.build(in)
	if err != nil {
		return nil, err
	}
	member.ID = ids.NewULID()
	if in.SortOrder == nil {
		next, err := s.repo.NextSortOrder(ctx)
		if err != nil {
			return nil, err
		}
		member.SortOrder = next
	}

	created, err := s.repo.Create(ctx, member)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("member_id", created.ID).Msg("team member created")
	s.notifier.Notify(ctx, content.Change{Type: content.TypeTeam, ID: created.ID})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Member, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	member, err := s.build(in)
	if err != nil {
		return nil, err
	}
	member.ID = existing.ID
	member.CreatedAt = existing.CreatedAt
	if in.SortOrder == nil {
		member.SortOrder = existing.SortOrder
	}

	updated, err := s.repo.Update(ctx, member)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeTeam, ID: updated.ID})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeTeam, ID: id, Deleted: true})
	return nil
}

// Reorder assigns sort positions in the order given.
func (s *Service) Reorder(ctx context.Context, memberIDs []string) error {
	memberIDs, err := content.CheckReorder(memberIDs)
	if err != nil {
		return err
	}
	if err := s.repo.Reorder(ctx, memberIDs); err != nil {
		return err
	}
	s.notifier.Notify(ctx, content.Change{Type: content.TypeTeam})
	return nil
}

// PublicList returns published members in display order.
func (s *Service) PublicList(ctx context.Context, locale string, values url.Values) (content.Page[View], error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return content.Page[View]{}, err
	}
	params.Status = content.StatusPublished

	page, err := s.repo.List(ctx, params)
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

func (s *Service) build(in Input) (Member, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Member{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	member := Member{
		PhotoURL:     strings.TrimSpace(in.PhotoURL),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        sanitize.Text(strings.TrimSpace(in.Phone)),
		LinkedInURL:  strings.TrimSpace(in.LinkedInURL),
		Status:       in.Status.OrDraft(),
		Translations: make(map[string]Translation, len(in.Translations)),
	}
	if in.SortOrder != nil {
		member.SortOrder = *in.SortOrder
	}

	for locale, tr := range in.Translations {
		doc, err := tr.Bio.DocJSON()
		if err != nil {
			problems.Add("translations["+locale+"].bio", "invalid document")
			continue
		}
		member.Translations[locale] = Translation{
			Name:     sanitize.Text(strings.TrimSpace(tr.Name)),
			Position: sanitize.Text(strings.TrimSpace(tr.Position)),
			Bio:      tr.Bio.HTML(),
			BioDoc:   doc,
		}
	}

	member.Slug = content.NormalizeSlug(in.Slug, member.Translations[s.locales.Default].Name)
	if member.Slug == "" {
		problems.Add("slug", "could not derive a slug; provide one")
	}

	if err := problems.Err(); err != nil {
		return Member{}, err
	}
	return member, nil
}

func Localize(set i18n.Set, locale string, m Member) (View, i18n.Meta) {
	tr, meta, _ := i18n.Resolve(set, locale, m.Translations)
	return View{
		ID:          m.ID,
		Slug:        m.Slug,
		PhotoURL:    m.PhotoURL,
		Email:       m.Email,
		Phone:       m.Phone,
		LinkedInURL: m.LinkedInURL,
		Locale:      meta.ResolvedLocale,
		Name:        tr.Name,
		Position:    tr.Position,
		Bio:         tr.Bio,
	}, meta
}
