package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/auth"
)

func newManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-test-secret-test-secret", time.Hour, "vitrin-test")
}

func TestAuthenticate_BearerToken(t *testing.T) {
	manager := newManager()
	token, err := manager.Generate("3f0e9c1c-6b7e-4b34-9e5b-2d9a4f1e7a10", "ayse", "editor")
	require.NoError(t, err)

	var claims *auth.Claims
	h := Authenticate(manager, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = AdminClaims(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	require.Equal(t, "ayse", claims.Username)
	require.Equal(t, "editor", claims.Role)
}

func TestAuthenticate_Cookie(t *testing.T) {
	manager := newManager()
	token, err := manager.Generate("3f0e9c1c-6b7e-4b34-9e5b-2d9a4f1e7a10", "ayse", "viewer")
	require.NoError(t, err)

	h := Authenticate(manager, "test")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejects(t *testing.T) {
	h := Authenticate(newManager(), "test")(okHandler())

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{name: "no credentials", setup: func(r *http.Request) {}},
		{name: "malformed header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }},
		{name: "invalid bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }},
		{name: "invalid cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "abc"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role string
		min  auth.Role
		want int
	}{
		{role: "viewer", min: auth.RoleViewer, want: http.StatusOK},
		{role: "viewer", min: auth.RoleEditor, want: http.StatusForbidden},
		{role: "editor", min: auth.RoleEditor, want: http.StatusOK},
		{role: "editor", min: auth.RoleAdmin, want: http.StatusForbidden},
		{role: "admin", min: auth.RoleAdmin, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.role+"_"+string(tt.min), func(t *testing.T) {
			h := RequireRole(tt.min, "test")(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", nil)
			req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Username: "u", Role: tt.role}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(auth.RoleViewer, "test")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
