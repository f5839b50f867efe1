package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestSize(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		bodySize int
		wantErr  bool
	}{
		{name: "small body", maxBytes: 1024, bodySize: 512},
		{name: "exact limit", maxBytes: 1024, bodySize: 1024},
		{name: "oversized body", maxBytes: 1024, bodySize: 2048, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			handler := RequestSize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(make([]byte, tt.bodySize)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				require.True(t, errors.As(readErr, &maxErr))
				return
			}
			require.NoError(t, readErr)
		})
	}
}
