package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vitrin-cms/server/internal/api/problem"
	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/media"
	"github.com/vitrin-cms/server/internal/metrics"
)

// multipartMemory is how much of a multipart form is buffered in memory;
// larger files spill to temporary files.
const multipartMemory = 8 << 20

type MediaService interface {
	List(ctx context.Context, filters media.Filters) (content.Page[media.Media], error)
	Get(ctx context.Context, id string) (*media.Media, error)
	Backends() []string
	Upload(ctx context.Context, up media.Upload) (*media.Media, error)
	UpdateAlt(ctx context.Context, id, alt string) (*media.Media, error)
	Delete(ctx context.Context, id string) error
}

type MediaHandler struct {
	service        MediaService
	defaultBackend string
	auditLogger    *audit.Logger
	env            string
}

func NewMediaHandler(service MediaService, defaultBackend string, auditLogger *audit.Logger, env string) *MediaHandler {
	return &MediaHandler{service: service, defaultBackend: defaultBackend, auditLogger: auditLogger, env: env}
}

// List handles GET /api/v1/admin/media
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := media.ParseFilters(r.URL.Query())
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

// Get handles GET /api/v1/admin/media/{id}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
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

type backendsResponse struct {
	Default  string   `json:"default"`
	Backends []string `json:"backends"`
}

// Backends handles GET /api/v1/admin/media/backends so the upload form only
// offers configured destinations.
func (h *MediaHandler) Backends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backendsResponse{Default: h.defaultBackend, Backends: h.service.Backends()})
}

// Upload handles POST /api/v1/admin/media as multipart/form-data with a
// "file" part and optional folder, alt and backend fields.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.record(r.FormValue("backend"), "rejected", 0)
			writeError(w, r, media.ErrTooLarge, h.env)
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Expected a multipart form", err, h.env)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, content.ValidationError{Fields: map[string]string{"file": "is required"}}, h.env)
		return
	}
	defer file.Close()

	backend := strings.TrimSpace(r.FormValue("backend"))
	item, err := h.service.Upload(r.Context(), media.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
		Folder:   r.FormValue("folder"),
		Alt:      r.FormValue("alt"),
		Backend:  backend,
	})
	if err != nil {
		result := "error"
		if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrUnsupportedType) || errors.Is(err, media.ErrEmptyFile) {
			result = "rejected"
		}
		h.record(backend, result, 0)
		writeError(w, r, err, h.env)
		return
	}

	h.record(item.Backend, "success", item.Size)
	h.auditLogger.LogFromRequest(r, "media.upload", "media", item.ID, audit.StatusSuccess, map[string]string{
		"backend":      item.Backend,
		"content_type": item.ContentType,
	})
	w.Header().Set("Location", "/api/v1/admin/media/"+item.ID)
	writeJSON(w, http.StatusCreated, item)
}

type updateMediaRequest struct {
	Alt string `json:"alt"`
}

// Update handles PATCH /api/v1/admin/media/{id}; only alt text is editable.
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var req updateMediaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	item, err := h.service.UpdateAlt(r.Context(), id, req.Alt)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues("media", "update").Inc()
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/admin/media/{id}
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathULID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	metrics.ContentMutationsTotal.WithLabelValues("media", "delete").Inc()
	h.auditLogger.LogFromRequest(r, "media.delete", "media", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) record(backend, result string, size int64) {
	if backend == "" {
		backend = h.defaultBackend
	}
	metrics.UploadsTotal.WithLabelValues(backend, result).Inc()
	if size > 0 {
		metrics.UploadBytes.WithLabelValues(backend).Add(float64(size))
	}
}
