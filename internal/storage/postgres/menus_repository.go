package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/menus"
)

var _ menus.Repository = (*MenuRepository)(nil)

type MenuRepository struct {
	conn
}

var menuItemTranslations = translationTable{
	name:        "menu_item_translations",
	ownerColumn: "item_id",
	columns:     []string{"label"},
}

func scanMenu(row pgx.Row) (menus.Menu, error) {
	var m menus.Menu
	err := row.Scan(&m.ID, &m.Key, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *MenuRepository) ListMenus(ctx context.Context) ([]menus.Menu, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, key, name, created_at, updated_at FROM menus ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer rows.Close()

	var out []menus.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menus: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MenuRepository) GetMenu(ctx context.Context, id string) (*menus.Menu, error) {
	return r.getMenuBy(ctx, "id", id)
}

func (r *MenuRepository) GetMenuByKey(ctx context.Context, key string) (*menus.Menu, error) {
	return r.getMenuBy(ctx, "key", key)
}

func (r *MenuRepository) getMenuBy(ctx context.Context, column, value string) (*menus.Menu, error) {
	m, err := scanMenu(r.queryer().QueryRow(ctx,
		`SELECT id, key, name, created_at, updated_at FROM menus WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get menu: %w", err)
	}
	return &m, nil
}

func (r *MenuRepository) CreateMenu(ctx context.Context, menu menus.Menu) (*menus.Menu, error) {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO menus (id, key, name) VALUES ($1, $2, $3)
RETURNING created_at, updated_at
`, menu.ID, menu.Key, menu.Name).Scan(&menu.CreatedAt, &menu.UpdatedAt)
	if err != nil {
		if uniqueViolationOn(err) {
			return nil, menus.ErrKeyTaken
		}
		return nil, fmt.Errorf("insert menu: %w", err)
	}
	return &menu, nil
}

func (r *MenuRepository) DeleteMenu(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "menus", id)
}

const menuItemColumns = `id, menu_id, parent_id, page_id, url, target, sort_order, created_at, updated_at`

func scanMenuItem(row pgx.Row) (menus.Item, error) {
	var it menus.Item
	err := row.Scan(&it.ID, &it.MenuID, &it.ParentID, &it.PageID, &it.URL, &it.Target, &it.SortOrder,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func scanMenuItemTranslation(rows pgx.Rows, owner, locale *string) (menus.ItemTranslation, error) {
	var t menus.ItemTranslation
	err := rows.Scan(owner, locale, &t.Label)
	return t, err
}

func (r *MenuRepository) ListItems(ctx context.Context, menuID string) ([]menus.Item, error) {
	return r.listItems(ctx, r.queryer(), menuID, false)
}

func (r *MenuRepository) listItems(ctx context.Context, q queryer, menuID string, lock bool) ([]menus.Item, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE menu_id = $1 ORDER BY sort_order, id`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, menuID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (menus.Item, error) {
		return scanMenuItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu items: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MenuRepository) attach(ctx context.Context, q queryer, items []menus.Item) error {
	owners := make([]string, len(items))
	for i, it := range items {
		owners[i] = it.ID
	}
	translations, err := loadTranslations(ctx, q, menuItemTranslations, owners, scanMenuItemTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]menus.ItemTranslation{}
		}
	}
	return nil
}

func (r *MenuRepository) GetItem(ctx context.Context, id string) (*menus.Item, error) {
	q := r.queryer()
	it, err := scanMenuItem(q.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	items := []menus.Item{it}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func menuItemTranslationRows(translations map[string]menus.ItemTranslation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Label})
	}
	return rows
}

func (r *MenuRepository) CreateItem(ctx context.Context, item menus.Item) (*menus.Item, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO menu_items (id, menu_id, parent_id, page_id, url, target, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at
`, item.ID, item.MenuID, item.ParentID, item.PageID, item.URL, item.Target, item.SortOrder,
		).Scan(&item.CreatedAt, &item.UpdatedAt); err != nil {
			if isForeignKeyViolation(err) {
				return content.ErrNotFound
			}
			return fmt.Errorf("insert menu item: %w", err)
		}
		return menuItemTranslations.replace(ctx, q, item.ID, menuItemTranslationRows(item.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *MenuRepository) UpdateItem(ctx context.Context, item menus.Item) (*menus.Item, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE menu_items
   SET parent_id = $2, page_id = $3, url = $4, target = $5, sort_order = $6, updated_at = now()
 WHERE id = $1
RETURNING menu_id, created_at, updated_at
`, item.ID, item.ParentID, item.PageID, item.URL, item.Target, item.SortOrder,
		).Scan(&item.MenuID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
				return content.ErrNotFound
			}
			return fmt.Errorf("update menu item: %w", err)
		}
		return menuItemTranslations.replace(ctx, q, item.ID, menuItemTranslationRows(item.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item together with its descendants.
func (r *MenuRepository) DeleteItem(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "menu_items", id)
}

func (r *MenuRepository) NextSortOrder(ctx context.Context, menuID string, parentID *string) (int, error) {
	var next int
	err := r.queryer().QueryRow(ctx, `
SELECT COALESCE(MAX(sort_order) + 1, 0)
  FROM menu_items
 WHERE menu_id = $1 AND parent_id IS NOT DISTINCT FROM $2
`, menuID, parentID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next menu item order: %w", err)
	}
	return next, nil
}

func (r *MenuRepository) Reorder(ctx context.Context, menuID string, placements []menus.Placement, check func([]menus.Item) error) error {
	return r.inTx(ctx, func(q queryer) error {
		items, err := r.listItems(ctx, q, menuID, true)
		if err != nil {
			return err
		}
		if err := check(items); err != nil {
			return err
		}

		for _, p := range placements {
			tag, err := q.Exec(ctx, `
UPDATE menu_items SET parent_id = $3, sort_order = $4, updated_at = now()
 WHERE id = $1 AND menu_id = $2
`, p.ID, menuID, p.ParentID, p.SortOrder)
			if err != nil {
				return fmt.Errorf("reorder menu items: %w", err)
			}
			if tag.RowsAffected() != 1 {
				return menus.ErrUnknownItem
			}
		}
		return nil
	})
}

func (r *MenuRepository) PublishedPageSlugs(ctx context.Context, pageIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(pageIDs))
	if len(pageIDs) == 0 {
		return out, nil
	}
	rows, err := r.queryer().Query(ctx, `
SELECT id, slug FROM pages WHERE id = ANY($1) AND status = $2
`, pageIDs, string(content.StatusPublished))
	if err != nil {
		return nil, fmt.Errorf("published page slugs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, slug string
		if err := rows.Scan(&id, &slug); err != nil {
			return nil, fmt.Errorf("scan page slugs: %w", err)
		}
		out[id] = slug
	}
	return out, rows.Err()
}
