package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/metrics"
	"github.com/vitrin-cms/server/internal/search"
	"github.com/vitrin-cms/server/internal/weather"
)

type PublicLister[V any] interface {
	PublicList(ctx context.Context, locale string, values url.Values) (content.Page[V], error)
}

type PublicGetter[V any] interface {
	PublicGet(ctx context.Context, locale, slug string) (content.Localized[V], error)
}

type PublicMenus interface {
	Public(ctx context.Context, key, locale string) (*menus.PublicTree, error)
}

type PublicSettings interface {
	Public(ctx context.Context, locale string) (map[string]any, error)
}

type CategoryLister interface {
	Categories(ctx context.Context) ([]string, error)
}

type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Response, error)
}

type WeatherLookup interface {
	Current(ctx context.Context, q weather.Query, lang string) (weather.Report, error)
}

// PublicHandler serves the unauthenticated read API. Every response is
// rendered in one negotiated locale.
type PublicHandler struct {
	locales i18n.Set
	env     string
}

func NewPublicHandler(locales i18n.Set, env string) *PublicHandler {
	return &PublicHandler{locales: locales, env: env}
}

// locale picks the response locale from ?locale= or Accept-Language and
// advertises it on the response.
func (h *PublicHandler) locale(w http.ResponseWriter, r *http.Request) string {
	locale := h.locales.Negotiate(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", locale)
	w.Header().Add("Vary", "Accept-Language")
	return locale
}

// List returns a handler for a paginated public collection.
func List[V any](h *PublicHandler, svc PublicLister[V]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := h.locale(w, r)
		page, err := svc.PublicList(r.Context(), locale, r.URL.Query())
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// Get returns a handler resolving one published entity by its {slug}.
func Get[V any](h *PublicHandler, svc PublicGetter[V]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := h.locale(w, r)
		slug := strings.TrimSpace(r.PathValue("slug"))
		if slug == "" {
			writeError(w, r, content.ErrNotFound, h.env)
			return
		}
		item, err := svc.PublicGet(r.Context(), locale, slug)
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		if item.Meta.ResolvedLocale != "" {
			w.Header().Set("Content-Language", item.Meta.ResolvedLocale)
		}
		writeJSON(w, http.StatusOK, item)
	}
}

type categoryList struct {
	Items []string `json:"items"`
}

// Categories handles GET /api/v1/public/products/categories
func (h *PublicHandler) Categories(svc CategoryLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		if categories == nil {
			categories = []string{}
		}
		writeJSON(w, http.StatusOK, categoryList{Items: categories})
	}
}

// Menu handles GET /api/v1/public/menus/{key}
func (h *PublicHandler) Menu(svc PublicMenus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := h.locale(w, r)
		tree, err := svc.Public(r.Context(), strings.TrimSpace(r.PathValue("key")), locale)
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

// Settings handles GET /api/v1/public/settings
func (h *PublicHandler) Settings(svc PublicSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := h.locale(w, r)
		values, err := svc.Public(r.Context(), locale)
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		writeJSON(w, http.StatusOK, values)
	}
}

// Search handles GET /api/v1/public/search?q=&type=&limit=
func (h *PublicHandler) Search(svc Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := h.locale(w, r)
		values := r.URL.Query()
		query := search.Query{
			Text:   values.Get("q"),
			Locale: locale,
			Type:   strings.TrimSpace(values.Get("type")),
		}
		if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				writeError(w, r, content.FilterError{Field: "limit", Message: "must be a positive integer"}, h.env)
				return
			}
			query.Limit = limit
		}

		resp, err := svc.Search(r.Context(), query)
		if err != nil {
			if !errors.Is(err, search.ErrEmptyQuery) {
				metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
			}
			writeError(w, r, err, h.env)
			return
		}
		metrics.SearchRequestsTotal.WithLabelValues(resp.Engine).Inc()
		if resp.Hits == nil {
			resp.Hits = []search.Hit{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Weather handles GET /api/v1/public/weather?city= or ?lat=&lon=
func (h *PublicHandler) Weather(svc WeatherLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, weather.ErrNotConfigured, h.env)
			return
		}
		locale := h.locale(w, r)
		q, err := weather.ParseQuery(r.URL.Query())
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		report, err := svc.Current(r.Context(), q, locale)
		if err != nil {
			writeError(w, r, err, h.env)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, report)
	}
}
