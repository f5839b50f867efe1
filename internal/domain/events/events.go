package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/richtext"
)

type Event struct {
	ID            string                 `json:"id"`
	Slug          string                 `json:"slug"`
	StartsAt      time.Time              `json:"starts_at"`
	EndsAt        *time.Time             `json:"ends_at,omitempty"`
	Timezone      string                 `json:"timezone"`
	Location      string                 `json:"location,omitempty"`
	OnlineURL     string                 `json:"online_url,omitempty"`
	CoverImageURL string                 `json:"cover_image_url,omitempty"`
	Status        content.Status         `json:"status"`
	Translations  map[string]Translation `json:"translations"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type Translation struct {
	Title   string          `json:"title"`
	Summary string          `json:"summary,omitempty"`
	Body    string          `json:"body,omitempty"`
	BodyDoc json.RawMessage `json:"body_doc,omitempty"`
}

// Input accepts dates as RFC 3339 or free text such as "12 March 2026 18:00",
// interpreted in Timezone.
type Input struct {
	Slug          string                      `json:"slug" validate:"omitempty,max=120"`
	StartsAt      string                      `json:"starts_at" validate:"required"`
	EndsAt        string                      `json:"ends_at"`
	Timezone      string                      `json:"timezone" validate:"omitempty,timezone"`
	Location      string                      `json:"location" validate:"max=300"`
	OnlineURL     string                      `json:"online_url" validate:"omitempty,url"`
	CoverImageURL string                      `json:"cover_image_url" validate:"omitempty,url"`
	Status        content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	Translations  map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Title   string        `json:"title" validate:"required,max=200"`
	Summary string        `json:"summary" validate:"max=500"`
	Body    richtext.Body `json:"body"`
}

type Filters struct {
	content.ListParams
	// Upcoming keeps events starting at or after From and orders them by
	// start time.
	Upcoming bool
	From     time.Time
}

type View struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Timezone      string     `json:"timezone"`
	Location      string     `json:"location,omitempty"`
	OnlineURL     string     `json:"online_url,omitempty"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	Locale        string     `json:"locale"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary,omitempty"`
	Body          string     `json:"body,omitempty"`
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[Event], error)
	Get(ctx context.Context, id string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	Create(ctx context.Context, event Event) (*Event, error)
	Update(ctx context.Context, event Event) (*Event, error)
	Delete(ctx context.Context, id string) error
}
