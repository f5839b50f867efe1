package blogs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/richtext"
)

const ExcerptLength = 280

type Post struct {
	ID            string                 `json:"id"`
	Slug          string                 `json:"slug"`
	Author        string                 `json:"author,omitempty"`
	CoverImageURL string                 `json:"cover_image_url,omitempty"`
	Tags          []string               `json:"tags"`
	Status        content.Status         `json:"status"`
	PublishedAt   *time.Time             `json:"published_at,omitempty"`
	Translations  map[string]Translation `json:"translations"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type Translation struct {
	Title           string          `json:"title"`
	Excerpt         string          `json:"excerpt,omitempty"`
	Body            string          `json:"body,omitempty"`
	BodyDoc         json.RawMessage `json:"body_doc,omitempty"`
	ReadingMinutes  int             `json:"reading_minutes"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
}

type Input struct {
	Slug          string                      `json:"slug" validate:"omitempty,max=120"`
	Author        string                      `json:"author" validate:"max=120"`
	CoverImageURL string                      `json:"cover_image_url" validate:"omitempty,url"`
	Tags          []string                    `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	Status        content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	PublishedAt   *time.Time                  `json:"published_at"`
	Translations  map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Title           string        `json:"title" validate:"required,max=200"`
	Excerpt         string        `json:"excerpt" validate:"max=500"`
	Body            richtext.Body `json:"body"`
	MetaTitle       string        `json:"meta_title" validate:"max=200"`
	MetaDescription string        `json:"meta_description" validate:"max=320"`
}

type Filters struct {
	content.ListParams
	Tag string
	// Newest orders by published_at descending instead of creation order.
	Newest bool
}

type View struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	Author          string     `json:"author,omitempty"`
	CoverImageURL   string     `json:"cover_image_url,omitempty"`
	Tags            []string   `json:"tags"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	Locale          string     `json:"locale"`
	Title           string     `json:"title"`
	Excerpt         string     `json:"excerpt,omitempty"`
	Body            string     `json:"body,omitempty"`
	ReadingMinutes  int        `json:"reading_minutes"`
	MetaTitle       string     `json:"meta_title,omitempty"`
	MetaDescription string     `json:"meta_description,omitempty"`
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[Post], error)
	Get(ctx context.Context, id string) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, post Post) (*Post, error)
	Update(ctx context.Context, post Post) (*Post, error)
	Delete(ctx context.Context, id string) error
}
