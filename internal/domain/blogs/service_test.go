package blogs

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/richtext"
)

type memRepo struct {
	items map[string]Post
	last  Filters
}

func (r *memRepo) List(_ context.Context, filters Filters) (content.Page[Post], error) {
	r.last = filters
	var out []Post
	for _, p := range r.items {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, p)
	}
	return content.Page[Post]{Items: out}, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Post, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) GetBySlug(_ context.Context, slug string) (*Post, error) {
	for _, p := range r.items {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, content.ErrNotFound
}

func (r *memRepo) Create(_ context.Context, post Post) (*Post, error) {
	r.items[post.ID] = post
	return &post, nil
}

func (r *memRepo) Update(_ context.Context, post Post) (*Post, error) {
	r.items[post.ID] = post
	return &post, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	delete(r.items, id)
	return nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{items: map[string]Post{}}
	svc := NewService(repo, i18n.MustSet("en", "en", "de"), nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreate_DerivesExcerptReadingTimeAndCover(t *testing.T) {
	svc, _ := newTestService()

	body := `<p>` + strings.Repeat("lorem ", 450) + `</p><img src="https://cdn.example.com/c.jpg">`
	post, err := svc.Create(context.Background(), Input{
		Tags:   []string{"News", " news ", "Launch"},
		Status: content.StatusPublished,
		Translations: map[string]TranslationInput{
			"en": {Title: "We launched!", Body: richtext.FromHTML(body)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "we-launched", post.Slug)
	require.Equal(t, []string{"news", "launch"}, post.Tags)
	require.Equal(t, "https://cdn.example.com/c.jpg", post.CoverImageURL)

	tr := post.Translations["en"]
	require.Equal(t, 3, tr.ReadingMinutes)
	require.NotEmpty(t, tr.Excerpt)
	require.LessOrEqual(t, len([]rune(tr.Excerpt)), ExcerptLength+1)
	require.NotNil(t, post.PublishedAt)
	require.Equal(t, 2026, post.PublishedAt.Year())
}

func TestCreate_DraftHasNoPublishedAt(t *testing.T) {
	svc, _ := newTestService()

	post, err := svc.Create(context.Background(), Input{
		Translations: map[string]TranslationInput{"en": {Title: "Draft"}},
	})
	require.NoError(t, err)
	require.Equal(t, content.StatusDraft, post.Status)
	require.Nil(t, post.PublishedAt)
}

func TestUpdate_KeepsFirstPublishedAt(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	post, err := svc.Create(ctx, Input{
		Status:       content.StatusPublished,
		Translations: map[string]TranslationInput{"en": {Title: "First"}},
	})
	require.NoError(t, err)
	first := *post.PublishedAt

	svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	updated, err := svc.Update(ctx, post.ID, Input{
		Status:       content.StatusPublished,
		Translations: map[string]TranslationInput{"en": {Title: "First, edited"}},
	})
	require.NoError(t, err)
	require.Equal(t, first, *updated.PublishedAt)
	require.Equal(t, "first-edited", updated.Slug)
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), Input{
		CoverImageURL: "::",
		Translations:  map[string]TranslationInput{"de": {Title: ""}},
	})
	var verr content.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "cover_image_url")
	require.Contains(t, verr.Fields, "translations[de].title")
	require.Contains(t, verr.Fields, "translations")
}

func TestPublicList_NewestPublished(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{
		Status:       content.StatusPublished,
		Translations: map[string]TranslationInput{"en": {Title: "Hello"}, "de": {Title: "Hallo"}},
	})
	require.NoError(t, err)

	page, err := svc.PublicList(ctx, "de", url.Values{"tag": {"News"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Hallo", page.Items[0].Title)
	require.True(t, repo.last.Newest)
	require.Equal(t, "news", repo.last.Tag)
	require.Equal(t, content.StatusPublished, repo.last.Status)
}
