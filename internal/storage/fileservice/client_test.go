package fileservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(config.FileServiceConfig{URL: srv.URL, Username: "cms", Password: "secret"})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(config.FileServiceConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPut_SendsMultipartWithBasicAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "cms", user)
		require.Equal(t, "secret", pass)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		data, _ := io.ReadAll(file)
		require.Equal(t, "hello", string(data))
		require.Equal(t, "uploads/2026/01/abc.png", header.Filename)
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))
		require.Equal(t, "uploads/2026/01", r.FormValue("folder"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://files.example.com/abc.png"})
	})

	url, err := client.Put(context.Background(), "uploads/2026/01/abc.png", strings.NewReader("hello"), 5, "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com/abc.png", url)
}

func TestPut_AlternateURLField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"file_url":"https://files.example.com/x.pdf"}`))
	})
	url, err := client.Put(context.Background(), "docs/x.pdf", strings.NewReader("%PDF"), 4, "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com/x.pdf", url)
}

func TestPut_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	})
	_, err := client.Put(context.Background(), "a.png", strings.NewReader("x"), 1, "image/png")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad credentials")
}

func TestPut_MissingURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := client.Put(context.Background(), "a.png", strings.NewReader("x"), 1, "image/png")
	require.Error(t, err)
}

func TestDeleteAndGet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/uploads/my%20file.mp4", r.URL.EscapedPath())
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodGet:
			_, _ = w.Write([]byte("video"))
		}
	})

	require.NoError(t, client.Delete(context.Background(), "uploads/my file.mp4"))

	body, err := client.Get(context.Background(), "uploads/my file.mp4")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	data, _ := io.ReadAll(body)
	require.Equal(t, "video", string(data))
}
