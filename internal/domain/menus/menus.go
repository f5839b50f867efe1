// Package menus manages navigation menus and their nested items.
package menus

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyTaken      = errors.New("menu key already in use")
	ErrCycle         = errors.New("menu items would form a cycle")
	ErrUnknownItem   = errors.New("menu item does not belong to this menu")
	ErrForeignParent = errors.New("parent item belongs to another menu")
)

const (
	TargetSelf  = "_self"
	TargetBlank = "_blank"
)

type Menu struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Item struct {
	ID           string                     `json:"id"`
	MenuID       string                     `json:"menu_id"`
	ParentID     *string                    `json:"parent_id,omitempty"`
	PageID       *string                    `json:"page_id,omitempty"`
	URL          string                     `json:"url,omitempty"`
	Target       string                     `json:"target"`
	SortOrder    int                        `json:"sort_order"`
	Translations map[string]ItemTranslation `json:"translations"`
	Children     []*Item                    `json:"children,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

type ItemTranslation struct {
	Label string `json:"label"`
}

type MenuInput struct {
	Key  string `json:"key" validate:"required,max=60"`
	Name string `json:"name" validate:"required,max=120"`
}

type ItemInput struct {
	ParentID     *string                         `json:"parent_id" validate:"omitempty,ulid"`
	PageID       *string                         `json:"page_id" validate:"omitempty,ulid"`
	URL          string                          `json:"url" validate:"max=2048"`
	Target       string                          `json:"target" validate:"omitempty,oneof=_self _blank"`
	SortOrder    *int                            `json:"sort_order" validate:"omitempty,gte=0"`
	Translations map[string]ItemTranslationInput `json:"translations" validate:"required,dive"`
}

type ItemTranslationInput struct {
	Label string `json:"label" validate:"required,max=120"`
}

// Placement is one entry of a reorder request.
type Placement struct {
	ID        string  `json:"id" validate:"required,ulid"`
	ParentID  *string `json:"parent_id" validate:"omitempty,ulid"`
	SortOrder int     `json:"sort_order" validate:"gte=0"`
}

// PublicItem is a menu item resolved to one locale with a final href.
type PublicItem struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Href     string        `json:"href"`
	Target   string        `json:"target"`
	Children []*PublicItem `json:"children,omitempty"`
}

type Tree struct {
	Menu  Menu    `json:"menu"`
	Items []*Item `json:"items"`
}

type PublicTree struct {
	Key    string        `json:"key"`
	Name   string        `json:"name"`
	Locale string        `json:"locale"`
	Items  []*PublicItem `json:"items"`
}

type Repository interface {
	ListMenus(ctx context.Context) ([]Menu, error)
	GetMenu(ctx context.Context, id string) (*Menu, error)
	GetMenuByKey(ctx context.Context, key string) (*Menu, error)
	CreateMenu(ctx context.Context, menu Menu) (*Menu, error)
	DeleteMenu(ctx context.Context, id string) error

	ListItems(ctx context.Context, menuID string) ([]Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	CreateItem(ctx context.Context, item Item) (*Item, error)
	UpdateItem(ctx context.Context, item Item) (*Item, error)
	DeleteItem(ctx context.Context, id string) error
	NextSortOrder(ctx context.Context, menuID string, parentID *string) (int, error)

	// Reorder locks the menu's items, passes them to check, and applies the
	// placements only when check returns nil. All of it runs in one
	// transaction.
	Reorder(ctx context.Context, menuID string, placements []Placement, check func([]Item) error) error

	// PublishedPageSlugs maps page ids to slugs for published pages.
	PublishedPageSlugs(ctx context.Context, pageIDs []string) (map[string]string, error)
}
