// Package i18n resolves which translation of a multilingual record to serve.
//
// Content rows keep their per-language text in side tables keyed by locale.
// A Set describes the locales the site publishes; Resolve picks the best
// available translation for a request and reports how it got there.
package i18n

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

var ErrInvalidLocale = errors.New("invalid locale")

// Set is the configured list of site locales. The default locale is always
// supported and acts as the fallback for missing translations.
type Set struct {
	Default   string
	Supported []string

	matcher language.Matcher
	ordered []string
}

// Meta describes how a translation was resolved for a request.
type Meta struct {
	RequestedLocale  string   `json:"requested_locale"`
	ResolvedLocale   string   `json:"resolved_locale"`
	AvailableLocales []string `json:"available_locales"`
	FallbackUsed     bool     `json:"fallback_used"`
}

// NewSet validates and normalizes the configured locales.
func NewSet(defaultLocale string, supported []string) (Set, error) {
	def := Normalize(defaultLocale)
	if def == "" {
		return Set{}, fmt.Errorf("%w: default locale is empty", ErrInvalidLocale)
	}

	seen := map[string]bool{}
	normalized := make([]string, 0, len(supported))
	for _, value := range supported {
		locale := Normalize(value)
		if locale == "" {
			return Set{}, fmt.Errorf("%w: %q", ErrInvalidLocale, value)
		}
		if _, err := language.Parse(locale); err != nil {
			return Set{}, fmt.Errorf("%w: %q", ErrInvalidLocale, value)
		}
		if seen[locale] {
			continue
		}
		seen[locale] = true
		normalized = append(normalized, locale)
	}
	if !seen[def] {
		return Set{}, fmt.Errorf("%w: default locale %q is not supported", ErrInvalidLocale, def)
	}

	// The matcher falls back to its first tag, so the default goes first.
	ordered := []string{def}
	for _, locale := range normalized {
		if locale != def {
			ordered = append(ordered, locale)
		}
	}
	tags := make([]language.Tag, len(ordered))
	for i, locale := range ordered {
		tags[i] = language.Make(locale)
	}

	return Set{
		Default:   def,
		Supported: normalized,
		matcher:   language.NewMatcher(tags),
		ordered:   ordered,
	}, nil
}

// MustSet is NewSet for tests and static setups.
func MustSet(defaultLocale string, supported ...string) Set {
	set, err := NewSet(defaultLocale, supported)
	if err != nil {
		panic(err)
	}
	return set
}

// Normalize lowercases a locale tag and reduces it to its base language
// ("en-US" -> "en", "pt_BR" -> "pt").
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "_", "-")
	if idx := strings.Index(value, "-"); idx > 0 {
		value = value[:idx]
	}
	return value
}

// IsSupported reports whether locale (after normalization) is published.
func (s Set) IsSupported(locale string) bool {
	locale = Normalize(locale)
	for _, candidate := range s.Supported {
		if candidate == locale {
			return true
		}
	}
	return false
}

// Negotiate picks the locale for a request: an explicit, supported query
// value wins, then the Accept-Language header, then the default locale.
func (s Set) Negotiate(explicit, acceptLanguage string) string {
	if explicit != "" && s.IsSupported(explicit) {
		return Normalize(explicit)
	}
	if strings.TrimSpace(acceptLanguage) == "" || s.matcher == nil {
		return s.Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return s.Default
	}
	_, index, confidence := s.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(s.ordered) {
		return s.Default
	}
	return s.ordered[index]
}

// Resolve returns the translation for requested, falling back to the
// default locale and then to the first available locale in sorted order.
// The boolean is false only when translations is empty.
func Resolve[T any](set Set, requested string, translations map[string]T) (T, Meta, bool) {
	requested = Normalize(requested)
	meta := Meta{
		RequestedLocale:  requested,
		AvailableLocales: Locales(translations),
	}

	if value, ok := translations[requested]; ok {
		meta.ResolvedLocale = requested
		return value, meta, true
	}

	if value, ok := translations[set.Default]; ok {
		meta.ResolvedLocale = set.Default
		meta.FallbackUsed = true
		return value, meta, true
	}

	if len(meta.AvailableLocales) > 0 {
		first := meta.AvailableLocales[0]
		meta.ResolvedLocale = first
		meta.FallbackUsed = true
		return translations[first], meta, true
	}

	var zero T
	return zero, meta, false
}

// Locales returns the sorted keys of a translation map.
func Locales[T any](translations map[string]T) []string {
	keys := make([]string, 0, len(translations))
	for key := range translations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ValidateKeys validates the keys of a translation map: each must be a
// supported locale and the default locale must be present. Problems are
// returned keyed by field path ("translations", "translations.fr").
func (s Set) ValidateKeys(locales []string) map[string]string {
	problems := map[string]string{}
	hasDefault := false
	for _, locale := range locales {
		if locale != Normalize(locale) || !s.IsSupported(locale) {
			problems["translations."+locale] = "unsupported locale"
			continue
		}
		if locale == s.Default {
			hasDefault = true
		}
	}
	if !hasDefault {
		problems["translations"] = fmt.Sprintf("a %q translation is required", s.Default)
	}
	return problems
}
