package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite_DevIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/admin/products", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, TypeBadRequest, "bad request", errors.New("boom"), "development")

	require.Equal(t, "application/problem+json", res.Result().Header.Get("Content-Type"))

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "boom", body.Detail)
	require.Equal(t, "/api/v1/admin/products", body.Instance)
	require.Equal(t, http.StatusBadRequest, body.Status)
}

func TestWrite_ProdSanitizesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/admin/products", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeServer, "server error", errors.New("pq: connection reset"), "production")

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, http.StatusText(http.StatusInternalServerError), body.Detail)
	require.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestWrite_FieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/blogs", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusUnprocessableEntity, TypeValidation, "Validation failed", nil, "production",
		WithErrors(map[string]string{"translations.en.title": "is required"}))

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "is required", body.Errors["translations.en.title"])
	require.Empty(t, body.Detail)
}
