package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/metrics"
)

// ContentService is the admin surface shared by every translatable content
// type. F is the type's list filter, In its create/update payload.
type ContentService[T, In, F any] interface {
	List(ctx context.Context, filters F) (content.Page[T], error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id string, in In) (*T, error)
	Delete(ctx context.Context, id string) error
}

// ContentHandler serves admin CRUD for one content type.
type ContentHandler[T, In, F any] struct {
	typ         string
	service     ContentService[T, In, F]
	parse       func(url.Values) (F, error)
	idOf        func(*T) string
	auditLogger *audit.Logger
	env         string
}

func NewContentHandler[T, In, F any](
	typ string,
	service ContentService[T, In, F],
	parse func(url.Values) (F, error),
	idOf func(*T) string,
	auditLogger *audit.Logger,
	env string,
) *ContentHandler[T, In, F] {
	return &ContentHandler[T, In, F]{
		typ:         typ,
		service:     service,
		parse:       parse,
		idOf:        idOf,
		auditLogger: auditLogger,
		env:         env,
	}
}

// List handles GET /api/v1/admin/{type}
func (h *ContentHandler[T, In, F]) List(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parse(r.URL.Query())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	page, err := h.service.List(r.Context(), filters)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/admin/{type}/{id}
func (h *ContentHandler[T, In, F]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /api/v1/admin/{type}
func (h *ContentHandler[T, In, F]) Create(w http.ResponseWriter, r *http.Request) {
	var in In
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	id := h.idOf(item)
	metrics.ContentMutationsTotal.WithLabelValues(h.typ, "create").Inc()
	h.auditLogger.LogFromRequest(r, h.typ+".create", h.typ, id, audit.StatusSuccess, nil)

	w.Header().Set("Location", r.URL.Path+"/"+id)
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/v1/admin/{type}/{id}. The body replaces the whole
// entity, translations included.
func (h *ContentHandler[T, In, F]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var in In
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues(h.typ, "update").Inc()
	h.auditLogger.LogFromRequest(r, h.typ+".update", h.typ, id, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/admin/{type}/{id}
func (h *ContentHandler[T, In, F]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues(h.typ, "delete").Inc()
	h.auditLogger.LogFromRequest(r, h.typ+".delete", h.typ, id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

type Reorderer interface {
	Reorder(ctx context.Context, ids []string) error
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

// ReorderHandler serves POST /api/v1/admin/{team|sliders}/reorder. The body
// lists every id of the collection in its new display order.
type ReorderHandler struct {
	typ         string
	service     Reorderer
	auditLogger *audit.Logger
	env         string
}

func NewReorderHandler(typ string, service Reorderer, auditLogger *audit.Logger, env string) *ReorderHandler {
	return &ReorderHandler{typ: typ, service: service, auditLogger: auditLogger, env: env}
}

func (h *ReorderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.Reorder(r.Context(), req.IDs); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues(h.typ, "reorder").Inc()
	h.auditLogger.LogFromRequest(r, h.typ+".reorder", h.typ, "", audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}
