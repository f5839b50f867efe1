package sliders

import (
	"context"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
)

type Slider struct {
	ID             string                 `json:"id"`
	ImageURL       string                 `json:"image_url"`
	MobileImageURL string                 `json:"mobile_image_url,omitempty"`
	LinkURL        string                 `json:"link_url,omitempty"`
	SortOrder      int                    `json:"sort_order"`
	Status         content.Status         `json:"status"`
	StartsAt       *time.Time             `json:"starts_at,omitempty"`
	EndsAt         *time.Time             `json:"ends_at,omitempty"`
	Translations   map[string]Translation `json:"translations"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type Translation struct {
	Title      string `json:"title,omitempty"`
	Subtitle   string `json:"subtitle,omitempty"`
	ButtonText string `json:"button_text,omitempty"`
}

type Input struct {
	ImageURL       string                      `json:"image_url" validate:"required,url"`
	MobileImageURL string                      `json:"mobile_image_url" validate:"omitempty,url"`
	LinkURL        string                      `json:"link_url" validate:"omitempty,max=2048"`
	SortOrder      *int                        `json:"sort_order" validate:"omitempty,gte=0"`
	Status         content.Status              `json:"status" validate:"omitempty,oneof=draft published"`
	StartsAt       *time.Time                  `json:"starts_at"`
	EndsAt         *time.Time                  `json:"ends_at"`
	Translations   map[string]TranslationInput `json:"translations" validate:"required,dive"`
}

type TranslationInput struct {
	Title      string `json:"title" validate:"max=200"`
	Subtitle   string `json:"subtitle" validate:"max=400"`
	ButtonText string `json:"button_text" validate:"max=60"`
}

type Filters struct {
	content.ListParams
	// VisibleAt, when set, keeps sliders whose window contains the instant.
	VisibleAt *time.Time
}

type View struct {
	ID             string `json:"id"`
	ImageURL       string `json:"image_url"`
	MobileImageURL string `json:"mobile_image_url,omitempty"`
	LinkURL        string `json:"link_url,omitempty"`
	Locale         string `json:"locale"`
	Title          string `json:"title,omitempty"`
	Subtitle       string `json:"subtitle,omitempty"`
	ButtonText     string `json:"button_text,omitempty"`
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[Slider], error)
	Get(ctx context.Context, id string) (*Slider, error)
	Create(ctx context.Context, slider Slider) (*Slider, error)
	Update(ctx context.Context, slider Slider) (*Slider, error)
	Delete(ctx context.Context, id string) error
	NextSortOrder(ctx context.Context) (int, error)
	Reorder(ctx context.Context, ids []string) error
}
