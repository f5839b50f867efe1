package content

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/i18n"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Çağrı Merkezi Şubesi  ", "cagri-merkezi-subesi"},
		{"Istanbul Ürünleri", "istanbul-urunleri"},
		{"Straße & Café", "strasse-and-cafe"},
		{"Ørsted Æble", "orsted-aeble"},
		{"--multiple---dashes--", "multiple-dashes"},
		{"Émile Zola: 2026!", "emile-zola-2026"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestSlugify_MaxLength(t *testing.T) {
	slug := Slugify(strings.Repeat("abc ", 60))
	require.LessOrEqual(t, len(slug), MaxSlugLength)
	require.False(t, strings.HasSuffix(slug, "-"))
}

func TestNormalizeSlug(t *testing.T) {
	require.Equal(t, "custom", NormalizeSlug("Custom", "Title"))
	require.Equal(t, "my-title", NormalizeSlug("", "My Title"))
	require.True(t, ValidSlug("my-title"))
	require.False(t, ValidSlug("My Title"))
	require.False(t, ValidSlug(""))
}

func TestParseListParams(t *testing.T) {
	params, err := ParseListParams(url.Values{})
	require.NoError(t, err)
	require.Equal(t, DefaultLimit, params.Limit)
	require.Equal(t, Status(""), params.Status)

	params, err = ParseListParams(url.Values{"q": {" news "}, "status": {"Published"}, "limit": {"10"}, "after": {"abc"}})
	require.NoError(t, err)
	require.Equal(t, "news", params.Query)
	require.Equal(t, StatusPublished, params.Status)
	require.Equal(t, 10, params.Limit)
	require.Equal(t, "abc", params.After)

	_, err = ParseListParams(url.Values{"status": {"archived"}})
	var ferr FilterError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, "status", ferr.Field)

	_, err = ParseListParams(url.Values{"limit": {"500"}})
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, "limit", ferr.Field)

	_, err = ParseListParams(url.Values{"limit": {"abc"}})
	require.ErrorAs(t, err, &ferr)
}

func TestPaginate(t *testing.T) {
	page := Paginate([]int{1, 2, 3}, 2, func(v int) string { return "c" + string(rune('0'+v)) })
	require.Equal(t, []int{1, 2}, page.Items)
	require.Equal(t, "c2", page.NextCursor)

	page = Paginate([]int{1}, 2, func(int) string { return "x" })
	require.Equal(t, []int{1}, page.Items)
	require.Empty(t, page.NextCursor)

	empty := Paginate[int](nil, 5, func(int) string { return "" })
	require.NotNil(t, empty.Items)
}

type sampleTranslation struct {
	Name string `json:"name" validate:"required,max=10"`
}

type sampleInput struct {
	Slug         string                       `json:"slug" validate:"omitempty,max=120"`
	Email        string                       `json:"email" validate:"omitempty,email"`
	Translations map[string]sampleTranslation `json:"translations" validate:"required,dive"`
}

func TestValidate(t *testing.T) {
	err := Validate(sampleInput{
		Email:        "not-an-email",
		Translations: map[string]sampleTranslation{"en": {Name: ""}},
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "must be a valid email address", verr.Fields["email"])
	require.Equal(t, "is required", verr.Fields["translations[en].name"])

	err = Validate(sampleInput{Translations: map[string]sampleTranslation{"en": {Name: "this is far too long"}}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "must be at most 10 characters", verr.Fields["translations[en].name"])

	require.NoError(t, Validate(sampleInput{Translations: map[string]sampleTranslation{"en": {Name: "ok"}}}))
}

func TestCheckTranslations(t *testing.T) {
	set := i18n.MustSet("en", "en", "tr")

	problems := Problems{}
	CheckTranslations(set, map[string]sampleTranslation{"tr": {Name: "x"}}, problems)
	require.Contains(t, problems, "translations")

	problems = Problems{}
	CheckTranslations(set, map[string]sampleTranslation{"en": {Name: "x"}, "tr": {Name: "y"}}, problems)
	require.NoError(t, problems.Err())
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Fields: map[string]string{"b": "bad", "a": "worse"}}
	require.Equal(t, "validation failed: a: worse; b: bad", err.Error())
}

func TestCheckReorder(t *testing.T) {
	a := "01HYX3KQW7ERTV9XNBM2P8QJZF"
	b := "01HYX3KQW7ERTV9XNBM2P8QJZG"

	order, err := CheckReorder([]string{a, b})
	require.NoError(t, err)
	require.Equal(t, []string{a, b}, order)

	order, err = CheckReorder([]string{strings.ToLower(a), " " + b})
	require.NoError(t, err)
	require.Equal(t, []string{a, b}, order)

	var verr ValidationError
	_, err = CheckReorder(nil)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ids")

	_, err = CheckReorder([]string{a, strings.ToLower(a)})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "duplicate id", verr.Fields["ids[1]"])

	_, err = CheckReorder([]string{"nope"})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "ids[0]")
}
