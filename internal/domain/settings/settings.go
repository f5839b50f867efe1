// Package settings stores site-wide key/value settings. Keys are declared in
// Registry; some hold per-locale text.
package settings

import (
	"context"
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindURL   Kind = "url"
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
	KindBool  Kind = "bool"
	KindGAID  Kind = "analytics_id"
)

type Definition struct {
	Key          string `json:"key"`
	Kind         Kind   `json:"kind"`
	Translatable bool   `json:"translatable"`
	MaxLength    int    `json:"max_length"`
}

// Registry lists every accepted settings key.
var Registry = []Definition{
	{Key: "site_name", Kind: KindText, Translatable: true, MaxLength: 120},
	{Key: "site_description", Kind: KindText, Translatable: true, MaxLength: 500},
	{Key: "address", Kind: KindText, Translatable: true, MaxLength: 500},
	{Key: "contact_email", Kind: KindEmail, MaxLength: 254},
	{Key: "contact_phone", Kind: KindPhone, MaxLength: 40},
	{Key: "logo_url", Kind: KindURL, MaxLength: 2048},
	{Key: "favicon_url", Kind: KindURL, MaxLength: 2048},
	{Key: "social_facebook", Kind: KindURL, MaxLength: 2048},
	{Key: "social_instagram", Kind: KindURL, MaxLength: 2048},
	{Key: "social_linkedin", Kind: KindURL, MaxLength: 2048},
	{Key: "social_x", Kind: KindURL, MaxLength: 2048},
	{Key: "social_youtube", Kind: KindURL, MaxLength: 2048},
	{Key: "maintenance_mode", Kind: KindBool, MaxLength: 5},
	{Key: "google_analytics_id", Kind: KindGAID, MaxLength: 32},
}

// Lookup returns the definition of key.
func Lookup(key string) (Definition, bool) {
	for _, def := range Registry {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}

// Stored is one persisted setting.
type Stored struct {
	Key          string            `json:"key"`
	Value        string            `json:"value"`
	Translations map[string]string `json:"translations,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Entry is the admin view of a setting: its definition plus current value.
type Entry struct {
	Definition
	Value        string            `json:"value"`
	Translations map[string]string `json:"translations,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
}

// Change is an update for one key. Translatable keys use Translations; other
// keys use Value.
type Change struct {
	Value        *string           `json:"value"`
	Translations map[string]string `json:"translations"`
}

type Repository interface {
	All(ctx context.Context) (map[string]Stored, error)
	// Upsert writes every setting in one transaction, replacing the
	// translations of translatable keys.
	Upsert(ctx context.Context, values []Stored) error
}

// Cache is the read-through cache for public settings.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
