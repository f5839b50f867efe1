package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type title struct {
	Text string
}

func TestNewSet(t *testing.T) {
	set, err := NewSet("EN", []string{"en", "tr-TR", "de", "tr"})
	require.NoError(t, err)
	require.Equal(t, "en", set.Default)
	require.Equal(t, []string{"en", "tr", "de"}, set.Supported)

	_, err = NewSet("fr", []string{"en"})
	require.ErrorIs(t, err, ErrInvalidLocale)

	_, err = NewSet("", []string{"en"})
	require.ErrorIs(t, err, ErrInvalidLocale)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"en":     "en",
		" EN-us": "en",
		"pt_BR":  "pt",
		"":       "",
	}
	for input, want := range tests {
		require.Equal(t, want, Normalize(input), input)
	}
}

func TestNegotiate(t *testing.T) {
	set := MustSet("en", "en", "tr", "de")

	tests := []struct {
		name     string
		explicit string
		accept   string
		want     string
	}{
		{name: "explicit wins", explicit: "tr", accept: "de", want: "tr"},
		{name: "explicit region reduced", explicit: "de-AT", want: "de"},
		{name: "unsupported explicit falls to header", explicit: "fr", accept: "de-DE,de;q=0.9", want: "de"},
		{name: "header quality order", accept: "fr;q=1.0, tr;q=0.8, en;q=0.5", want: "tr"},
		{name: "no match uses default", accept: "ja", want: "en"},
		{name: "empty uses default", want: "en"},
		{name: "garbage header uses default", accept: ";;;===", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, set.Negotiate(tt.explicit, tt.accept))
		})
	}
}

func TestResolve(t *testing.T) {
	set := MustSet("en", "en", "tr", "de")

	translations := map[string]title{
		"en": {Text: "Hello"},
		"tr": {Text: "Merhaba"},
	}

	value, meta, ok := Resolve(set, "tr", translations)
	require.True(t, ok)
	require.Equal(t, "Merhaba", value.Text)
	require.False(t, meta.FallbackUsed)
	require.Equal(t, "tr", meta.ResolvedLocale)
	require.Equal(t, []string{"en", "tr"}, meta.AvailableLocales)

	value, meta, ok = Resolve(set, "de", translations)
	require.True(t, ok)
	require.Equal(t, "Hello", value.Text)
	require.True(t, meta.FallbackUsed)
	require.Equal(t, "de", meta.RequestedLocale)
	require.Equal(t, "en", meta.ResolvedLocale)

	value, meta, ok = Resolve(set, "en", map[string]title{"tr": {Text: "Merhaba"}, "de": {Text: "Hallo"}})
	require.True(t, ok)
	require.Equal(t, "Hallo", value.Text)
	require.Equal(t, "de", meta.ResolvedLocale)

	_, _, ok = Resolve(set, "en", map[string]title{})
	require.False(t, ok)
}

func TestValidateKeys(t *testing.T) {
	set := MustSet("en", "en", "tr")

	require.Empty(t, set.ValidateKeys([]string{"en", "tr"}))

	problems := set.ValidateKeys([]string{"tr", "fr"})
	require.Contains(t, problems, "translations")
	require.Contains(t, problems, "translations.fr")

	problems = set.ValidateKeys([]string{"en", "TR"})
	require.Contains(t, problems, "translations.TR")
}
