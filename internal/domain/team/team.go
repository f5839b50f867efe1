package team

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/richtext"
)

type Member struct {
	ID           string                 `json:"id"`
	Slug         string                 `json:"slug"`
	PhotoURL     string                 `json:"photo_url,omitempty"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	LinkedInURL  string                 `json:"linkedin_url,omitempty"`
	SortOrder    int                    `json:"sort_order"`
	Status       content.Status         `json:"status"`
	Translations map[string]Translation `json:"translations"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type Translation struct {
	Name     string          `json:"name"`
	Position string          `json:"position,omitempty"`
	Bio      string          `json:"bio,omitempty"`
	BioDoc   json.RawMessage `json:"bio_doc,omitempty"`
}

type Input struct {
	Slug         string                      `json:"slug" validate:"omitempty,max=120"`
	PhotoURL     string                      `json:"photo_url" validate:"omitempty,url"`
	Email        string                      `json:"email" validate:"omitempty,email"`
	Phone        string                      `json:"phone" validate:"omitempty,max=40"`
	LinkedInURL  string                      `json:"linkedin_url" validate:"omitempty,url"`
	SortOrder    *int                        `json:"sort_order" validate:"omitempty,gte=0"`
	Status       content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	Translations map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Name     string        `json:"name" validate:"required,max=200"`
	Position string        `json:"position" validate:"max=200"`
	Bio      richtext.Body `json:"bio"`
}

type View struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	Locale      string `json:"locale"`
	Name        string `json:"name"`
	Position    string `json:"position,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

type Repository interface {
	List(ctx context.Context, params content.ListParams) (content.Page[Member], error)
	Get(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, member Member) (*Member, error)
	Update(ctx context.Context, member Member) (*Member, error)
	Delete(ctx context.Context, id string) error
	// NextSortOrder returns one past the highest sort_order in use.
	NextSortOrder(ctx context.Context) (int, error)
	// Reorder sets sort_order to each id's index; every id must exist.
	Reorder(ctx context.Context, ids []string) error
}
