package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/domain/settings"
)

const menuID = "01HZY3M2PQ4RS5TV6WX7YZ8AB9"

type menuStub struct {
	placements []menus.Placement
	reorderErr error
	createErr  error
}

func (s *menuStub) ListMenus(context.Context) ([]menus.Menu, error) { return nil, nil }

func (s *menuStub) CreateMenu(_ context.Context, in menus.MenuInput) (*menus.Menu, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &menus.Menu{ID: menuID, Key: in.Key, Name: in.Name}, nil
}

func (s *menuStub) DeleteMenu(context.Context, string) error { return nil }

func (s *menuStub) GetTree(_ context.Context, key string) (*menus.Tree, error) {
	if key != "main" {
		return nil, content.ErrNotFound
	}
	return &menus.Tree{Menu: menus.Menu{ID: menuID, Key: key}, Items: []*menus.Item{}}, nil
}

func (s *menuStub) CreateItem(_ context.Context, menuID string, _ menus.ItemInput) (*menus.Item, error) {
	return &menus.Item{ID: noteID, MenuID: menuID}, nil
}

func (s *menuStub) UpdateItem(_ context.Context, id string, _ menus.ItemInput) (*menus.Item, error) {
	return &menus.Item{ID: id}, nil
}

func (s *menuStub) DeleteItem(context.Context, string) error { return nil }

func (s *menuStub) Reorder(_ context.Context, _ string, placements []menus.Placement) error {
	s.placements = placements
	return s.reorderErr
}

func TestMenusHandler_List(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMenusHandler(&menuStub{}, nil, "test").List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/menus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestMenusHandler_Create(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMenusHandler(&menuStub{}, nil, "test").Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/menus",
		strings.NewReader(`{"key":"footer","name":"Footer"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	NewMenusHandler(&menuStub{createErr: menus.ErrKeyTaken}, nil, "test").Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/menus",
		strings.NewReader(`{"key":"main","name":"Main"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMenusHandler_Tree(t *testing.T) {
	h := NewMenusHandler(&menuStub{}, nil, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/menus/main/tree", nil)
	req.SetPathValue("key", "main")
	rec := httptest.NewRecorder()
	h.Tree(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/menus/nope/tree", nil)
	req.SetPathValue("key", "nope")
	rec = httptest.NewRecorder()
	h.Tree(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMenusHandler_Reorder(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "applied", want: http.StatusNoContent},
		{name: "cycle", err: menus.ErrCycle, want: http.StatusUnprocessableEntity},
		{name: "foreign parent", err: menus.ErrForeignParent, want: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &menuStub{reorderErr: tt.err}
			body := `{"items":[{"id":"` + noteID + `","parent_id":null,"sort_order":0}]}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/menus/"+menuID+"/reorder", strings.NewReader(body))
			req.SetPathValue("id", menuID)
			rec := httptest.NewRecorder()

			NewMenusHandler(svc, nil, "test").Reorder(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			require.Len(t, svc.placements, 1)
			assert.Equal(t, noteID, svc.placements[0].ID)
		})
	}
}

type settingsStub struct {
	changes map[string]settings.Change
	err     error
}

func (s *settingsStub) All(context.Context) ([]settings.Entry, error) {
	return []settings.Entry{{Value: "Vitrin"}}, nil
}

func (s *settingsStub) Update(_ context.Context, changes map[string]settings.Change) ([]settings.Entry, error) {
	s.changes = changes
	if s.err != nil {
		return nil, s.err
	}
	return []settings.Entry{{Value: "true"}}, nil
}

func TestSettingsHandler_Update(t *testing.T) {
	svc := &settingsStub{}
	rec := httptest.NewRecorder()
	NewSettingsHandler(svc, nil, "test").Update(rec, httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings",
		strings.NewReader(`{"maintenance_mode":{"value":"true"},"site_title":{"translations":{"en":"Vitrin","tr":"Vitrin"}}}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.changes, 2)
	require.NotNil(t, svc.changes["maintenance_mode"].Value)
	assert.Equal(t, "true", *svc.changes["maintenance_mode"].Value)
	assert.Equal(t, "Vitrin", svc.changes["site_title"].Translations["tr"])
}

func TestSettingsHandler_UpdateRejected(t *testing.T) {
	svc := &settingsStub{err: content.ValidationError{Fields: map[string]string{"unknown_key": "is not a setting"}}}
	rec := httptest.NewRecorder()
	NewSettingsHandler(svc, nil, "test").Update(rec, httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings",
		strings.NewReader(`{"unknown_key":{"value":"x"}}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
