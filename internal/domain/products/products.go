package products

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/richtext"
)

type Product struct {
	ID           string                 `json:"id"`
	Slug         string                 `json:"slug"`
	Category     string                 `json:"category,omitempty"`
	SKU          string                 `json:"sku,omitempty"`
	Price        *float64               `json:"price,omitempty"`
	Currency     string                 `json:"currency,omitempty"`
	ImageURL     string                 `json:"image_url,omitempty"`
	Gallery      []string               `json:"gallery"`
	Status       content.Status         `json:"status"`
	SortOrder    int                    `json:"sort_order"`
	Translations map[string]Translation `json:"translations"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type Translation struct {
	Name            string          `json:"name"`
	Summary         string          `json:"summary,omitempty"`
	Body            string          `json:"body,omitempty"`
	BodyDoc         json.RawMessage `json:"body_doc,omitempty"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
}

// Input is the admin create/update payload. Updates replace every field,
// including the full translation set.
type Input struct {
	Slug         string                      `json:"slug" validate:"omitempty,max=120"`
	Category     string                      `json:"category" validate:"omitempty,max=100"`
	SKU          string                      `json:"sku" validate:"omitempty,max=64"`
	Price        *float64                    `json:"price" validate:"omitempty,gte=0"`
	Currency     string                      `json:"currency" validate:"omitempty,iso4217"`
	ImageURL     string                      `json:"image_url" validate:"omitempty,url"`
	Gallery      []string                    `json:"gallery" validate:"omitempty,max=50,dive,url"`
	Status       content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	SortOrder    int                         `json:"sort_order" validate:"gte=0"`
	Translations map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Name            string        `json:"name" validate:"required,max=200"`
	Summary         string        `json:"summary" validate:"max=500"`
	Body            richtext.Body `json:"body"`
	MetaTitle       string        `json:"meta_title" validate:"max=200"`
	MetaDescription string        `json:"meta_description" validate:"max=320"`
}

type Filters struct {
	content.ListParams
	Category string
}

// View is a product resolved to a single locale for public delivery.
type View struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Category        string   `json:"category,omitempty"`
	SKU             string   `json:"sku,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Gallery         []string `json:"gallery"`
	Locale          string   `json:"locale"`
	Name            string   `json:"name"`
	Summary         string   `json:"summary,omitempty"`
	Body            string   `json:"body,omitempty"`
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[Product], error)
	Get(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, product Product) (*Product, error)
	Update(ctx context.Context, product Product) (*Product, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context, status content.Status) ([]string, error)
}
