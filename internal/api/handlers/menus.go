package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/metrics"
)

type MenuService interface {
	ListMenus(ctx context.Context) ([]menus.Menu, error)
	CreateMenu(ctx context.Context, in menus.MenuInput) (*menus.Menu, error)
	DeleteMenu(ctx context.Context, id string) error
	GetTree(ctx context.Context, key string) (*menus.Tree, error)
	CreateItem(ctx context.Context, menuID string, in menus.ItemInput) (*menus.Item, error)
	UpdateItem(ctx context.Context, id string, in menus.ItemInput) (*menus.Item, error)
	DeleteItem(ctx context.Context, id string) error
	Reorder(ctx context.Context, menuID string, placements []menus.Placement) error
}

type MenusHandler struct {
	service     MenuService
	auditLogger *audit.Logger
	env         string
}

func NewMenusHandler(service MenuService, auditLogger *audit.Logger, env string) *MenusHandler {
	return &MenusHandler{service: service, auditLogger: auditLogger, env: env}
}

type menuList struct {
	Items []menus.Menu `json:"items"`
}

// List handles GET /api/v1/admin/menus
func (h *MenusHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMenus(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if list == nil {
		list = []menus.Menu{}
	}
	writeJSON(w, http.StatusOK, menuList{Items: list})
}

// Create handles POST /api/v1/admin/menus
func (h *MenusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in menus.MenuInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	menu, err := h.service.CreateMenu(r.Context(), in)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.mutated(r, "menu.create", menu.ID, map[string]string{"key": menu.Key})
	writeJSON(w, http.StatusCreated, menu)
}

// Delete handles DELETE /api/v1/admin/menus/{id}; its items go with it.
func (h *MenusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.DeleteMenu(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.mutated(r, "menu.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Tree handles GET /api/v1/admin/menus/{key}/tree: every item with all
// translations, nested under its parent.
func (h *MenusHandler) Tree(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, r, content.ErrNotFound, h.env)
		return
	}
	tree, err := h.service.GetTree(r.Context(), key)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// CreateItem handles POST /api/v1/admin/menus/{id}/items
func (h *MenusHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	menuID, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var in menus.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.CreateItem(r.Context(), menuID, in)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.mutated(r, "menu_item.create", item.ID, map[string]string{"menu_id": menuID})
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/admin/menu-items/{id}
func (h *MenusHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var in menus.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.mutated(r, "menu_item.update", id, nil)
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/admin/menu-items/{id}; children are
// deleted with their parent.
func (h *MenusHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.mutated(r, "menu_item.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

type menuReorderRequest struct {
	Items []menus.Placement `json:"items"`
}

// Reorder handles POST /api/v1/admin/menus/{id}/reorder. Placements that
// would create a cycle are rejected and nothing is written.
func (h *MenusHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	menuID, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var req menuReorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.Reorder(r.Context(), menuID, req.Items); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues("menu", "reorder").Inc()
	h.auditLogger.LogFromRequest(r, "menu.reorder", "menu", menuID, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MenusHandler) mutated(r *http.Request, action, id string, details map[string]string) {
	op := action[strings.LastIndex(action, ".")+1:]
	metrics.ContentMutationsTotal.WithLabelValues("menu", op).Inc()
	h.auditLogger.LogFromRequest(r, action, "menu", id, audit.StatusSuccess, details)
}
