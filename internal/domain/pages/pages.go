package pages

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/richtext"
)

// Templates a page may be rendered with by the public site.
var Templates = []string{"default", "landing", "contact", "full-width"}

type Page struct {
	ID           string                 `json:"id"`
	Slug         string                 `json:"slug"`
	Template     string                 `json:"template"`
	Status       content.Status         `json:"status"`
	Translations map[string]Translation `json:"translations"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type Translation struct {
	Title           string          `json:"title"`
	Body            string          `json:"body,omitempty"`
	BodyDoc         json.RawMessage `json:"body_doc,omitempty"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
}

type Input struct {
	Slug         string                      `json:"slug" validate:"omitempty,max=120"`
	Template     string                      `json:"template" validate:"omitempty,oneof=default landing contact full-width"`
	Status       content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	Translations map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Title           string        `json:"title" validate:"required,max=200"`
	Body            richtext.Body `json:"body"`
	MetaTitle       string        `json:"meta_title" validate:"max=200"`
	MetaDescription string        `json:"meta_description" validate:"max=320"`
}

type View struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Template        string `json:"template"`
	Locale          string `json:"locale"`
	Title           string `json:"title"`
	Body            string `json:"body,omitempty"`
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
}

type Repository interface {
	List(ctx context.Context, params content.ListParams) (content.Page[Page], error)
	Get(ctx context.Context, id string) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	Create(ctx context.Context, page Page) (*Page, error)
	Update(ctx context.Context, page Page) (*Page, error)
	Delete(ctx context.Context, id string) error
}
