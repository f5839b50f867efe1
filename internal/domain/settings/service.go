package settings

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/sanitize"
)

const publicCacheTTL = 10 * time.Minute

var (
	gaPattern    = regexp.MustCompile(`^(G|UA|GT|AW)-[A-Z0-9-]{4,24}$`)
	phonePattern = regexp.MustCompile(`^[0-9+()\-. ]{3,40}$`)
)

type Service struct {
	repo    Repository
	cache   Cache
	locales i18n.Set
	logger  zerolog.Logger
}

// NewService builds the settings service; cache may be nil.
func NewService(repo Repository, cache Cache, locales i18n.Set, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		locales: locales,
		logger:  logger.With().Str("component", "settings").Logger(),
	}
}

// All returns every registered key with its stored value, in registry order.
func (s *Service) All(ctx context.Context) ([]Entry, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(Registry))
	for _, def := range Registry {
		entry := Entry{Definition: def}
		if value, ok := stored[def.Key]; ok {
			entry.Value = value.Value
			entry.Translations = value.Translations
			updated := value.UpdatedAt
			entry.UpdatedAt = &updated
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Update validates and stores a batch of changes. Unknown keys are rejected.
func (s *Service) Update(ctx context.Context, changes map[string]Change) ([]Entry, error) {
	problems := content.Problems{}
	if len(changes) == 0 {
		problems.Add("settings", "no changes")
	}

	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([]Stored, 0, len(changes))
	for _, key := range keys {
		change := changes[key]
		def, ok := Lookup(key)
		if !ok {
			problems.Add(key, "unknown setting")
			continue
		}
		stored, ok := s.normalize(def, change, problems)
		if ok {
			values = append(values, stored)
		}
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, values); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info().Strs("keys", keys).Msg("settings updated")
	return s.All(ctx)
}

// Public returns settings resolved for locale. Translatable keys fall back
// to the default locale. The result is cached per locale.
func (s *Service) Public(ctx context.Context, locale string) (map[string]any, error) {
	cacheKey := publicCacheKey(locale)
	if s.cache != nil {
		var cached map[string]any
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("settings cache read failed")
		} else if found {
			return cached, nil
		}
	}

	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(Registry))
	for _, def := range Registry {
		value, ok := stored[def.Key]
		switch {
		case def.Translatable:
			text := ""
			if ok {
				text, _, _ = i18n.Resolve(s.locales, locale, value.Translations)
			}
			out[def.Key] = text
		case def.Kind == KindBool:
			enabled := false
			if ok {
				enabled, _ = strconv.ParseBool(value.Value)
			}
			out[def.Key] = enabled
		default:
			if ok {
				out[def.Key] = value.Value
			} else {
				out[def.Key] = ""
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, out, publicCacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("settings cache write failed")
		}
	}
	return out, nil
}

// MaintenanceMode reports the maintenance_mode flag. It reads through the
// public settings cache since it runs on every public request.
func (s *Service) MaintenanceMode(ctx context.Context) (bool, error) {
	values, err := s.Public(ctx, s.locales.Default)
	if err != nil {
		return false, err
	}
	enabled, _ := values["maintenance_mode"].(bool)
	return enabled, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(s.locales.Supported))
	for _, locale := range s.locales.Supported {
		keys = append(keys, publicCacheKey(locale))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Msg("settings cache invalidation failed")
	}
}

func publicCacheKey(locale string) string {
	return "settings:public:" + locale
}

func (s *Service) normalize(def Definition, change Change, problems content.Problems) (Stored, bool) {
	stored := Stored{Key: def.Key}

	if def.Translatable {
		if change.Value != nil {
			problems.Add(def.Key, "is translatable; send translations")
			return stored, false
		}
		stored.Translations = make(map[string]string, len(change.Translations))
		for locale, text := range change.Translations {
			if !s.locales.IsSupported(locale) || locale != i18n.Normalize(locale) {
				problems.Add(fmt.Sprintf("%s.translations.%s", def.Key, locale), "unsupported locale")
				continue
			}
			text = sanitize.Text(strings.TrimSpace(text))
			if utf8.RuneCountInString(text) > def.MaxLength {
				problems.Add(fmt.Sprintf("%s.translations.%s", def.Key, locale), fmt.Sprintf("must be at most %d characters", def.MaxLength))
				continue
			}
			if text != "" {
				stored.Translations[locale] = text
			}
		}
		return stored, true
	}

	if len(change.Translations) > 0 {
		problems.Add(def.Key, "is not translatable; send value")
		return stored, false
	}
	value := ""
	if change.Value != nil {
		value = strings.TrimSpace(*change.Value)
	}
	if utf8.RuneCountInString(value) > def.MaxLength {
		problems.Add(def.Key, fmt.Sprintf("must be at most %d characters", def.MaxLength))
		return stored, false
	}
	if value != "" {
		if msg := checkKind(def.Kind, value); msg != "" {
			problems.Add(def.Key, msg)
			return stored, false
		}
	}
	switch def.Kind {
	case KindBool:
		enabled, _ := strconv.ParseBool(value)
		value = strconv.FormatBool(enabled)
	case KindEmail:
		value = strings.ToLower(value)
	case KindText, KindPhone:
		value = sanitize.Text(value)
	}
	stored.Value = value
	return stored, true
}

func checkKind(kind Kind, value string) string {
	switch kind {
	case KindURL:
		return content.CheckVar(value, "http_url")
	case KindEmail:
		return content.CheckVar(value, "email")
	case KindPhone:
		if !phonePattern.MatchString(value) {
			return "must be a phone number"
		}
	case KindBool:
		if content.CheckVar(value, "boolean") != "" {
			return "must be true or false"
		}
	case KindGAID:
		if !gaPattern.MatchString(value) {
			return "must look like G-XXXXXXX"
		}
	}
	return ""
}
