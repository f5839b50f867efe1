package team

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/richtext"
)

type memRepo struct {
	items map[string]Member
}

func (r *memRepo) List(_ context.Context, params content.ListParams) (content.Page[Member], error) {
	var out []Member
	for _, m := range r.items {
		if params.Status != "" && m.Status != params.Status {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return content.Page[Member]{Items: out}, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Member, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return &m, nil
}

func (r *memRepo) Create(_ context.Context, member Member) (*Member, error) {
	r.items[member.ID] = member
	return &member, nil
}

func (r *memRepo) Update(_ context.Context, member Member) (*Member, error) {
	r.items[member.ID] = member
	return &member, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return content.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memRepo) NextSortOrder(context.Context) (int, error) {
	next := 0
	for _, m := range r.items {
		if m.SortOrder >= next {
			next = m.SortOrder + 1
		}
	}
	return next, nil
}

func (r *memRepo) Reorder(_ context.Context, ids []string) error {
	for i, id := range ids {
		m, ok := r.items[id]
		if !ok {
			return content.ErrNotFound
		}
		m.SortOrder = i
		r.items[id] = m
	}
	return nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{items: map[string]Member{}}
	return NewService(repo, i18n.MustSet("en", "en", "tr"), nil, zerolog.Nop()), repo
}

func member(name string) Input {
	return Input{
		Status: content.StatusPublished,
		Email:  "Person@Example.com",
		Translations: map[string]TranslationInput{
			"en": {Name: name, Position: "Engineer", Bio: richtext.FromHTML("<p>Hi</p>")},
		},
	}
}

func TestCreate_AppendsToEnd(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, member("Ada Lovelace"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, member("Alan Turing"))
	require.NoError(t, err)

	require.Equal(t, 0, first.SortOrder)
	require.Equal(t, 1, second.SortOrder)
	require.Equal(t, "ada-lovelace", first.Slug)
	require.Equal(t, "person@example.com", first.Email)
}

func TestReorder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, member("A"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, member("B"))
	require.NoError(t, err)

	require.NoError(t, svc.Reorder(ctx, []string{b.ID, a.ID}))

	page, err := svc.PublicList(ctx, "tr", url.Values{})
	require.NoError(t, err)
	require.Equal(t, "B", page.Items[0].Name)
	require.Equal(t, "en", page.Items[0].Locale)

	require.NoError(t, svc.Reorder(ctx, []string{strings.ToLower(a.ID), strings.ToLower(b.ID)}))
	page, err = svc.PublicList(ctx, "en", url.Values{})
	require.NoError(t, err)
	require.Equal(t, "A", page.Items[0].Name)

	var verr content.ValidationError
	require.ErrorAs(t, svc.Reorder(ctx, []string{a.ID, a.ID}), &verr)
}

func TestUpdate_KeepsSortOrderWhenOmitted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, member("A"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, member("B"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, b.ID, member("B Renamed"))
	require.NoError(t, err)
	require.Equal(t, 1, updated.SortOrder)
	require.Equal(t, "b-renamed", updated.Slug)
}

func TestCreate_InvalidEmail(t *testing.T) {
	svc, _ := newTestService()

	in := member("A")
	in.Email = "nope"
	_, err := svc.Create(context.Background(), in)
	var verr content.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
}
