package content

import "github.com/vitrin-cms/server/internal/i18n"

// CheckTranslations records locale problems for a translation map: keys must
// be supported locales and the default locale must be present.
func CheckTranslations[T any](set i18n.Set, translations map[string]T, problems Problems) {
	problems.Merge(set.ValidateKeys(i18n.Locales(translations)))
}

// Localized wraps a single-locale view of an entity with its resolution
// metadata for public responses.
type Localized[T any] struct {
	Data T         `json:"data"`
	Meta i18n.Meta `json:"meta"`
}
