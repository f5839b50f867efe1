package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/domain/pages"
)

func TestMenuRepository_ItemsAndReorder(t *testing.T) {
	db := setupPostgres(t)
	repo := db.Menus()
	ctx := context.Background()

	menu, err := repo.CreateMenu(ctx, menus.Menu{ID: ids.NewULID(), Key: "header", Name: "Header"})
	require.NoError(t, err)
	_, err = repo.CreateMenu(ctx, menus.Menu{ID: ids.NewULID(), Key: "header", Name: "Again"})
	require.ErrorIs(t, err, menus.ErrKeyTaken)

	page, err := db.Pages().Create(ctx, pages.Page{
		ID: ids.NewULID(), Slug: "about", Template: "default", Status: content.StatusPublished,
		Translations: map[string]pages.Translation{"en": {Title: "About"}},
	})
	require.NoError(t, err)

	parent, err := repo.CreateItem(ctx, menus.Item{
		ID: ids.NewULID(), MenuID: menu.ID, Target: menus.TargetSelf, URL: "/company",
		Translations: map[string]menus.ItemTranslation{"en": {Label: "Company"}},
	})
	require.NoError(t, err)
	child, err := repo.CreateItem(ctx, menus.Item{
		ID: ids.NewULID(), MenuID: menu.ID, ParentID: &parent.ID, PageID: &page.ID, Target: menus.TargetSelf,
		Translations: map[string]menus.ItemTranslation{"en": {Label: "About"}},
	})
	require.NoError(t, err)

	next, err := repo.NextSortOrder(ctx, menu.ID, &parent.ID)
	require.NoError(t, err)
	require.Equal(t, 1, next)

	slugs, err := repo.PublishedPageSlugs(ctx, []string{page.ID})
	require.NoError(t, err)
	require.Equal(t, map[string]string{page.ID: "about"}, slugs)

	var seen []menus.Item
	err = repo.Reorder(ctx, menu.ID, []menus.Placement{
		{ID: child.ID, SortOrder: 0},
		{ID: parent.ID, SortOrder: 1},
	}, func(items []menus.Item) error {
		seen = items
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)

	items, err := repo.ListItems(ctx, menu.ID)
	require.NoError(t, err)
	require.Equal(t, child.ID, items[0].ID)
	require.Nil(t, items[0].ParentID)
	require.Equal(t, "About", items[0].Translations["en"].Label)

	err = repo.Reorder(ctx, menu.ID, []menus.Placement{{ID: child.ID, SortOrder: 5}},
		func([]menus.Item) error { return menus.ErrCycle })
	require.ErrorIs(t, err, menus.ErrCycle)
	stored, err := repo.GetItem(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.SortOrder)

	require.NoError(t, db.Pages().Delete(ctx, page.ID))
	stored, err = repo.GetItem(ctx, child.ID)
	require.NoError(t, err)
	require.Nil(t, stored.PageID)

	require.NoError(t, repo.DeleteMenu(ctx, menu.ID))
	_, err = repo.GetItem(ctx, parent.ID)
	require.ErrorIs(t, err, content.ErrNotFound)
}
