package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/metrics"
)

const noteID = "01HZY3J5N8W4Q6T2V9X7B1C3D5"

type note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type noteInput struct {
	Title string `json:"title"`
}

// noteService is an in-memory content service keyed by id.
type noteService struct {
	items   map[string]note
	nextID  string
	created []noteInput
	order   []string
}

func newNoteService() *noteService {
	return &noteService{items: map[string]note{}, nextID: noteID}
}

func (s *noteService) List(_ context.Context, params content.ListParams) (content.Page[note], error) {
	if params.After == "garbage" {
		return content.Page[note]{}, pagination.ErrInvalidCursor
	}
	page := content.Page[note]{Items: []note{}}
	for _, item := range s.items {
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func (s *noteService) Get(_ context.Context, id string) (*note, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return &item, nil
}

func (s *noteService) Create(_ context.Context, in noteInput) (*note, error) {
	if in.Title == "" {
		return nil, content.ValidationError{Fields: map[string]string{"title": "is required"}}
	}
	if in.Title == "taken" {
		return nil, content.ErrSlugTaken
	}
	s.created = append(s.created, in)
	item := note{ID: s.nextID, Title: in.Title}
	s.items[item.ID] = item
	return &item, nil
}

func (s *noteService) Update(_ context.Context, id string, in noteInput) (*note, error) {
	if _, ok := s.items[id]; !ok {
		return nil, content.ErrNotFound
	}
	item := note{ID: id, Title: in.Title}
	s.items[id] = item
	return &item, nil
}

func (s *noteService) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return content.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *noteService) Reorder(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return content.ValidationError{Fields: map[string]string{"ids": "is required"}}
	}
	s.order = ids
	return nil
}

func newNoteHandler(svc *noteService) *ContentHandler[note, noteInput, content.ListParams] {
	return NewContentHandler[note, noteInput, content.ListParams]("notes", svc, content.ParseListParams,
		func(n *note) string { return n.ID }, nil, "test")
}

func TestContentHandler_CreateAndGet(t *testing.T) {
	svc := newNoteService()
	h := newNoteHandler(svc)
	before := testutil.ToFloat64(metrics.ContentMutationsTotal.WithLabelValues("notes", "create"))

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes", strings.NewReader(`{"title":"Hello"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/admin/notes/"+noteID, rec.Header().Get("Location"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ContentMutationsTotal.WithLabelValues("notes", "create")))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notes/"+strings.ToLower(noteID), nil)
	req.SetPathValue("id", strings.ToLower(noteID))
	rec = httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got note
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Hello", got.Title)
}

func TestContentHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "validation", body: `{"title":""}`, want: http.StatusUnprocessableEntity},
		{name: "slug taken", body: `{"title":"taken"}`, want: http.StatusConflict},
		{name: "malformed json", body: `{"title":`, want: http.StatusBadRequest},
		{name: "trailing data", body: `{"title":"a"} {}`, want: http.StatusBadRequest},
		{name: "empty body", body: ``, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newNoteService()
			rec := httptest.NewRecorder()
			newNoteHandler(svc).Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Empty(t, svc.items)
		})
	}
}

func TestContentHandler_ValidationFieldsInProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	newNoteHandler(newNoteService()).Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes", strings.NewReader(`{"title":""}`)))

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "is required", body.Errors["title"])
}

func TestContentHandler_List(t *testing.T) {
	svc := newNoteService()
	svc.items[noteID] = note{ID: noteID, Title: "One"}
	h := newNoteHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/notes?status=published", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[{"id":"`+noteID)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/notes?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/notes?after=garbage", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandler_UpdateAndDelete(t *testing.T) {
	svc := newNoteService()
	svc.items[noteID] = note{ID: noteID, Title: "Old"}
	h := newNoteHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/notes/"+noteID, strings.NewReader(`{"title":"New"}`))
	req.SetPathValue("id", noteID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New", svc.items[noteID].Title)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/notes/"+noteID, nil)
	req.SetPathValue("id", noteID)
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.items)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/notes/"+noteID, nil)
	req.SetPathValue("id", noteID)
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentHandler_InvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notes/42", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	newNoteHandler(newNoteService()).Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorderHandler(t *testing.T) {
	svc := newNoteService()
	h := NewReorderHandler("notes", svc, nil, "test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes/reorder", strings.NewReader(`{"ids":["b","a"]}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"b", "a"}, svc.order)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes/reorder", strings.NewReader(`{"ids":[]}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/notes", strings.NewReader(`{"title":"`+strings.Repeat("x", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	newNoteHandler(newNoteService()).Create(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
