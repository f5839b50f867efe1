package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/metrics"
	"github.com/vitrin-cms/server/internal/search"
	"github.com/vitrin-cms/server/internal/weather"
)

type view struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// publicStub records the locale each call was made with.
type publicStub struct {
	locale string
	values url.Values
}

func (s *publicStub) PublicList(_ context.Context, locale string, values url.Values) (content.Page[view], error) {
	s.locale, s.values = locale, values
	return content.Page[view]{Items: []view{{Slug: "merhaba", Title: "Merhaba"}}}, nil
}

func (s *publicStub) PublicGet(_ context.Context, locale, slug string) (content.Localized[view], error) {
	s.locale = locale
	if slug != "about" {
		return content.Localized[view]{}, content.ErrNotFound
	}
	return content.Localized[view]{
		Data: view{Slug: slug, Title: "About"},
		Meta: i18n.Meta{RequestedLocale: locale, ResolvedLocale: "en", AvailableLocales: []string{"en"}, FallbackUsed: locale != "en"},
	}, nil
}

func (s *publicStub) Public(_ context.Context, key, locale string) (*menus.PublicTree, error) {
	s.locale = locale
	if key != "main" {
		return nil, content.ErrNotFound
	}
	return &menus.PublicTree{Key: key, Locale: locale, Items: []*menus.PublicItem{}}, nil
}

func newPublic() *PublicHandler {
	return NewPublicHandler(i18n.MustSet("en", "tr", "de"), "test")
}

func TestPublicList_NegotiatesLocale(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		accept string
		want   string
	}{
		{name: "query wins", query: "?locale=de", accept: "tr", want: "de"},
		{name: "accept language", accept: "tr-TR,tr;q=0.9,en;q=0.5", want: "tr"},
		{name: "unsupported query falls back to header", query: "?locale=fr", accept: "tr", want: "tr"},
		{name: "default", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &publicStub{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/public/blogs"+tt.query, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			List[view](newPublic(), svc).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, svc.locale)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Language"))
			assert.Equal(t, "Accept-Language", rec.Header().Get("Vary"))
		})
	}
}

func TestPublicGet(t *testing.T) {
	svc := &publicStub{}
	h := Get[view](newPublic(), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/pages/about?locale=tr", nil)
	req.SetPathValue("slug", "about")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))
	assert.Contains(t, rec.Body.String(), `"fallback_used":true`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/public/pages/missing", nil)
	req.SetPathValue("slug", "missing")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicMenu(t *testing.T) {
	svc := &publicStub{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/menus/main", nil)
	req.Header.Set("Accept-Language", "de")
	req.SetPathValue("key", "main")
	rec := httptest.NewRecorder()

	newPublic().Menu(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"main","name":"","locale":"de","items":[]}`, rec.Body.String())
}

type searchStub struct {
	query search.Query
	resp  search.Response
	err   error
}

func (s *searchStub) Search(_ context.Context, q search.Query) (search.Response, error) {
	s.query = q
	return s.resp, s.err
}

func TestPublicSearch(t *testing.T) {
	svc := &searchStub{resp: search.Response{Query: "kahve", Engine: search.EnginePostgres}}
	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(search.EnginePostgres))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/search?q=kahve&type=products&limit=5&locale=tr", nil)
	rec := httptest.NewRecorder()
	newPublic().Search(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, search.Query{Text: "kahve", Locale: "tr", Type: "products", Limit: 5}, svc.query)
	assert.JSONEq(t, `{"query":"kahve","engine":"postgres","hits":[]}`, rec.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(search.EnginePostgres)))
}

func TestPublicSearch_Errors(t *testing.T) {
	rec := httptest.NewRecorder()
	newPublic().Search(&searchStub{err: search.ErrEmptyQuery}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newPublic().Search(&searchStub{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/search?q=a&limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type weatherStub struct {
	lang string
	err  error
}

func (s *weatherStub) Current(_ context.Context, q weather.Query, lang string) (weather.Report, error) {
	s.lang = lang
	if s.err != nil {
		return weather.Report{}, s.err
	}
	return weather.Report{City: q.City}, nil
}

func TestPublicWeather(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{name: "ok", query: "?city=Izmir&locale=tr", want: http.StatusOK},
		{name: "missing location", query: "", want: http.StatusBadRequest},
		{name: "unknown city", query: "?city=Nowhere", err: weather.ErrNotFound, want: http.StatusNotFound},
		{name: "upstream down", query: "?city=Izmir", err: weather.ErrUpstream, want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &weatherStub{err: tt.err}
			rec := httptest.NewRecorder()
			newPublic().Weather(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/weather"+tt.query, nil))

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "tr", svc.lang)
			}
		})
	}

	rec := httptest.NewRecorder()
	newPublic().Weather(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/weather?city=Izmir", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
