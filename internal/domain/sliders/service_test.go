package sliders

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/i18n"
)

type memRepo struct {
	items []Slider
	last  Filters
}

func (r *memRepo) List(_ context.Context, filters Filters) (content.Page[Slider], error) {
	r.last = filters
	var out []Slider
	for _, sl := range r.items {
		if filters.Status != "" && sl.Status != filters.Status {
			continue
		}
		out = append(out, sl)
	}
	return content.Page[Slider]{Items: out}, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Slider, error) {
	for _, sl := range r.items {
		if sl.ID == id {
			return &sl, nil
		}
	}
	return nil, content.ErrNotFound
}

func (r *memRepo) Create(_ context.Context, slider Slider) (*Slider, error) {
	r.items = append(r.items, slider)
	return &slider, nil
}

func (r *memRepo) Update(_ context.Context, slider Slider) (*Slider, error) {
	for i := range r.items {
		if r.items[i].ID == slider.ID {
			r.items[i] = slider
		}
	}
	return &slider, nil
}

func (r *memRepo) Delete(context.Context, string) error { return nil }

func (r *memRepo) NextSortOrder(context.Context) (int, error) { return len(r.items), nil }

func (r *memRepo) Reorder(context.Context, []string) error { return nil }

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{}
	svc := NewService(repo, i18n.MustSet("en", "en"), nil, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc, repo
}

func slide(title string) Input {
	return Input{
		ImageURL:     "https://cdn.example.com/slide.jpg",
		LinkURL:      "/products",
		Status:       content.StatusPublished,
		Translations: map[string]TranslationInput{"en": {Title: title, ButtonText: "Shop"}},
	}
}

func TestVisibleAt(t *testing.T) {
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	require.True(t, Slider{}.VisibleAt(now))
	require.True(t, Slider{StartsAt: &before, EndsAt: &after}.VisibleAt(now))
	require.False(t, Slider{StartsAt: &after}.VisibleAt(now))
	require.False(t, Slider{EndsAt: &now}.VisibleAt(now))
}

func TestPublicList_RespectsWindow(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, slide("Always"))
	require.NoError(t, err)

	later := now.Add(24 * time.Hour)
	future := slide("Future")
	future.StartsAt = &later
	_, err = svc.Create(ctx, future)
	require.NoError(t, err)

	page, err := svc.PublicList(ctx, "en", url.Values{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Always", page.Items[0].Title)
	require.NotNil(t, repo.last.VisibleAt)
	require.Equal(t, 1, repo.items[1].SortOrder)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()

	start := now
	end := now.Add(-time.Hour)
	in := slide("Bad")
	in.ImageURL = ""
	in.LinkURL = "javascript:alert(1)"
	in.StartsAt = &start
	in.EndsAt = &end

	_, err := svc.Create(context.Background(), in)
	var verr content.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "image_url")
	require.Contains(t, verr.Fields, "link_url")
	require.Contains(t, verr.Fields, "ends_at")
}

func TestValidLink(t *testing.T) {
	require.True(t, validLink("/about"))
	require.True(t, validLink("https://example.com/x"))
	require.False(t, validLink("//evil.example.com"))
	require.False(t, validLink("ftp://example.com"))
}
