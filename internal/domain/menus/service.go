package menus

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/sanitize"
)

type Service struct {
	repo    Repository
	locales i18n.Set
	logger  zerolog.Logger
}

func NewService(repo Repository, locales i18n.Set, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		locales: locales,
		logger:  logger.With().Str("component", "menus").Logger(),
	}
}

func (s *Service) ListMenus(ctx context.Context) ([]Menu, error) {
	return s.repo.ListMenus(ctx)
}

func (s *Service) CreateMenu(ctx context.Context, in MenuInput) (*Menu, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(in.Key)
	if key != "" && !content.ValidSlug(key) {
		problems.Add("key", "must be lowercase letters, digits and dashes")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	menu, err := s.repo.CreateMenu(ctx, Menu{
		ID:   ids.NewULID(),
		Key:  key,
		Name: sanitize.Text(strings.TrimSpace(in.Name)),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("menu_id", menu.ID).Str("key", menu.Key).Msg("menu created")
	return menu, nil
}

// DeleteMenu removes a menu and, through the foreign key, all of its items.
func (s *Service) DeleteMenu(ctx context.Context, id string) error {
	return s.repo.DeleteMenu(ctx, id)
}

// GetTree returns the admin view of a menu: every item with all translations.
func (s *Service) GetTree(ctx context.Context, key string) (*Tree, error) {
	menu, err := s.repo.GetMenuByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, menu.ID)
	if err != nil {
		return nil, err
	}
	return &Tree{Menu: *menu, Items: BuildTree(items)}, nil
}

func (s *Service) CreateItem(ctx context.Context, menuID string, in ItemInput) (*Item, error) {
	if _, err := s.repo.GetMenu(ctx, menuID); err != nil {
		return nil, err
	}
	item, err := s.buildItem(in)
	if err != nil {
		return nil, err
	}
	item.ID = ids.NewULID()
	item.MenuID = menuID

	if item.ParentID != nil {
		parent, err := s.repo.GetItem(ctx, *item.ParentID)
		switch {
		case errors.Is(err, content.ErrNotFound):
			return nil, ErrForeignParent
		case err != nil:
			return nil, err
		case parent.MenuID != menuID:
			return nil, ErrForeignParent
		}
	}
	if in.SortOrder == nil {
		next, err := s.repo.NextSortOrder(ctx, menuID, item.ParentID)
		if err != nil {
			return nil, err
		}
		item.SortOrder = next
	}
	return s.repo.CreateItem(ctx, item)
}

func (s *Service) UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error) {
	existing, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := s.buildItem(in)
	if err != nil {
		return nil, err
	}
	item.ID = existing.ID
	item.MenuID = existing.MenuID
	item.CreatedAt = existing.CreatedAt
	if in.SortOrder == nil {
		item.SortOrder = existing.SortOrder
	}

	if !sameParent(existing.ParentID, item.ParentID) {
		items, err := s.repo.ListItems(ctx, existing.MenuID)
		if err != nil {
			return nil, err
		}
		if err := CheckParent(items, id, item.ParentID); err != nil {
			return nil, err
		}
	}
	return s.repo.UpdateItem(ctx, item)
}

// DeleteItem removes an item and its descendants.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.repo.DeleteItem(ctx, id)
}

// Reorder moves and reorders items of one menu atomically.
func (s *Service) Reorder(ctx context.Context, menuID string, placements []Placement) error {
	problems := content.Problems{}
	if len(placements) == 0 {
		problems.Add("items", "is required")
	}
	seen := map[string]bool{}
	for _, p := range placements {
		if err := content.Validate(p); err != nil {
			return err
		}
		if seen[p.ID] {
			problems.Add("items", "duplicate id "+p.ID)
		}
		seen[p.ID] = true
	}
	if err := problems.Err(); err != nil {
		return err
	}

	if _, err := s.repo.GetMenu(ctx, menuID); err != nil {
		return err
	}
	err := s.repo.Reorder(ctx, menuID, placements, func(items []Item) error {
		return CheckPlacements(items, placements)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("menu_id", menuID).Int("items", len(placements)).Msg("menu reordered")
	return nil
}

// Public resolves a menu to one locale. Items linked to a page get the
// page's localized path; items linked to unpublished pages are dropped
// unless they also carry a URL.
func (s *Service) Public(ctx context.Context, key, locale string) (*PublicTree, error) {
	menu, err := s.repo.GetMenuByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, menu.ID)
	if err != nil {
		return nil, err
	}

	var pageIDs []string
	for _, item := range items {
		if item.PageID != nil {
			pageIDs = append(pageIDs, *item.PageID)
		}
	}
	slugs := map[string]string{}
	if len(pageIDs) > 0 {
		slugs, err = s.repo.PublishedPageSlugs(ctx, pageIDs)
		if err != nil {
			return nil, err
		}
	}

	tree := &PublicTree{Key: menu.Key, Name: menu.Name, Locale: locale}
	tree.Items = s.localize(BuildTree(items), locale, slugs)
	return tree, nil
}

func (s *Service) localize(items []*Item, locale string, slugs map[string]string) []*PublicItem {
	out := make([]*PublicItem, 0, len(items))
	for _, item := range items {
		href := item.URL
		if item.PageID != nil {
			if slug, ok := slugs[*item.PageID]; ok {
				href = "/" + locale + "/" + slug
			}
		}
		if href == "" {
			continue
		}
		tr, _, _ := i18n.Resolve(s.locales, locale, item.Translations)
		out = append(out, &PublicItem{
			ID:       item.ID,
			Label:    tr.Label,
			Href:     href,
			Target:   item.Target,
			Children: s.localize(item.Children, locale, slugs),
		})
	}
	return out
}

func (s *Service) buildItem(in ItemInput) (Item, error) {
	problems, err := content.ValidationProblems(in)
	if err != nil {
		return Item{}, err
	}
	content.CheckTranslations(s.locales, in.Translations, problems)

	url := strings.TrimSpace(in.URL)
	pageID := trimPtr(in.PageID)
	if url == "" && pageID == nil {
		problems.Add("url", "url or page_id is required")
	}
	if url != "" && !validHref(url) {
		problems.Add("url", "must be an absolute http(s) URL, a site path, mailto: or tel:")
	}

	item := Item{
		ParentID:     trimPtr(in.ParentID),
		PageID:       pageID,
		URL:          url,
		Target:       in.Target,
		Translations: make(map[string]ItemTranslation, len(in.Translations)),
	}
	if item.Target == "" {
		item.Target = TargetSelf
	}
	if in.SortOrder != nil {
		item.SortOrder = *in.SortOrder
	}
	for locale, tr := range in.Translations {
		item.Translations[locale] = ItemTranslation{Label: sanitize.Text(strings.TrimSpace(tr.Label))}
	}

	if err := problems.Err(); err != nil {
		return Item{}, err
	}
	return item, nil
}

func validHref(href string) bool {
	switch {
	case strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//"):
		return true
	case strings.HasPrefix(href, "#"):
		return true
	case strings.HasPrefix(href, "mailto:"), strings.HasPrefix(href, "tel:"):
		return true
	case strings.HasPrefix(href, "https://"), strings.HasPrefix(href, "http://"):
		return len(href) > len("https://")
	}
	return false
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	v = strings.ToUpper(v)
	return &v
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
