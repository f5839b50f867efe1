package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/media"
	"github.com/vitrin-cms/server/internal/metrics"
)

const mediaID = "01HZY3K0AB2CD3EF4GH5JK6MN7"

type mediaStub struct {
	upload   media.Upload
	body     []byte
	err      error
	alt      string
	deleted  string
	backends []string
}

func (s *mediaStub) List(context.Context, media.Filters) (content.Page[media.Media], error) {
	return content.Page[media.Media]{Items: []media.Media{}}, nil
}

func (s *mediaStub) Get(_ context.Context, id string) (*media.Media, error) {
	if id != mediaID {
		return nil, content.ErrNotFound
	}
	return &media.Media{ID: id}, nil
}

func (s *mediaStub) Backends() []string { return s.backends }

func (s *mediaStub) Upload(_ context.Context, up media.Upload) (*media.Media, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, err
	}
	s.upload, s.body = up, body
	backend := up.Backend
	if backend == "" {
		backend = media.BackendObjectStore
	}
	return &media.Media{ID: mediaID, Backend: backend, Size: int64(len(body)), ContentType: "image/png", Alt: up.Alt}, nil
}

func (s *mediaStub) UpdateAlt(_ context.Context, id, alt string) (*media.Media, error) {
	s.alt = alt
	return &media.Media{ID: id, Alt: alt}, nil
}

func (s *mediaStub) Delete(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMediaHandler_Upload(t *testing.T) {
	svc := &mediaStub{}
	h := NewMediaHandler(svc, media.BackendObjectStore, nil, "test")
	png := []byte("\x89PNG\r\n\x1a\nfake")
	before := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues(media.BackendObjectStore, "success"))

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, map[string]string{"folder": "products", "alt": "Red chair"}, "chair.png", png))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/admin/media/"+mediaID, rec.Header().Get("Location"))
	assert.Equal(t, "chair.png", svc.upload.Filename)
	assert.Equal(t, "products", svc.upload.Folder)
	assert.Equal(t, "Red chair", svc.upload.Alt)
	assert.Equal(t, png, svc.body)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues(media.BackendObjectStore, "success")))
}

func TestMediaHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
		want   int
	}{
		{name: "too large", err: media.ErrTooLarge, result: "rejected", want: http.StatusRequestEntityTooLarge},
		{name: "bad type", err: media.ErrUnsupportedType, result: "rejected", want: http.StatusUnsupportedMediaType},
		{name: "backend missing", err: media.ErrBackendUnavailable, result: "error", want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMediaHandler(&mediaStub{err: tt.err}, media.BackendFileService, nil, "test")
			before := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues(media.BackendFileService, tt.result))

			rec := httptest.NewRecorder()
			h.Upload(rec, multipartRequest(t, nil, "x.exe", []byte("MZ")))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues(media.BackendFileService, tt.result)))
		})
	}
}

func TestMediaHandler_UploadWithoutFile(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMediaHandler(&mediaStub{}, media.BackendObjectStore, nil, "test").
		Upload(rec, multipartRequest(t, map[string]string{"alt": "x"}, "", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMediaHandler_UploadNotMultipart(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/media", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	NewMediaHandler(&mediaStub{}, media.BackendObjectStore, nil, "test").Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaHandler_UpdateAndDelete(t *testing.T) {
	svc := &mediaStub{}
	h := NewMediaHandler(svc, media.BackendObjectStore, nil, "test")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/media/"+mediaID, bytes.NewBufferString(`{"alt":"Blue chair"}`))
	req.SetPathValue("id", mediaID)
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Blue chair", svc.alt)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/media/"+mediaID, nil)
	req.SetPathValue("id", mediaID)
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, mediaID, svc.deleted)
}

func TestMediaHandler_Backends(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMediaHandler(&mediaStub{backends: []string{"fileservice", "objectstore"}}, media.BackendObjectStore, nil, "test").
		Backends(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/media/backends", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default":"objectstore","backends":["fileservice","objectstore"]}`, rec.Body.String())
}
