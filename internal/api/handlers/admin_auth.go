package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/vitrin-cms/server/internal/api/middleware"
	"github.com/vitrin-cms/server/internal/api/problem"
	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/users"
)

type Authenticator interface {
	Login(ctx context.Context, login, password string) (*users.User, string, error)
	Get(ctx context.Context, id string) (*users.User, error)
}

type AdminAuthHandler struct {
	users        Authenticator
	tokenExpiry  time.Duration
	cookieSecure bool
	auditLogger  *audit.Logger
	env          string
	now          func() time.Time
}

func NewAdminAuthHandler(svc Authenticator, tokenExpiry time.Duration, cookieSecure bool, auditLogger *audit.Logger, env string) *AdminAuthHandler {
	return &AdminAuthHandler{
		users:        svc,
		tokenExpiry:  tokenExpiry,
		cookieSecure: cookieSecure,
		auditLogger:  auditLogger,
		env:          env,
		now:          time.Now,
	}
}

// loginRequest accepts either field name for the username or email.
type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

// Login handles POST /api/v1/admin/auth/login. The JWT is returned in the
// body for API clients and as an HttpOnly cookie for the admin panel.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}

	problems := content.Problems{}
	if login == "" {
		problems.Add("login", "is required")
	}
	if req.Password == "" {
		problems.Add("password", "is required")
	}
	if err := problems.Err(); err != nil {
		writeError(w, r, err, h.env)
		return
	}

	user, token, err := h.users.Login(r.Context(), login, req.Password)
	if err != nil {
		h.auditLogger.LogFailure("auth.login", login, audit.ClientIP(r), nil)
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogSuccess("auth.login", user.Username, "user", user.ID, audit.ClientIP(r), nil)

	expiresAt := h.now().Add(h.tokenExpiry).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Logout handles POST /api/v1/admin/auth/logout. Tokens are stateless, so
// logging out only clears the cookie.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Me handles GET /api/v1/admin/auth/me
func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AdminClaims(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.env)
		return
	}
	user, err := h.users.Get(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type csrfResponse struct {
	Token string `json:"csrf_token"`
}

// CSRF handles GET /api/v1/admin/csrf. It must sit behind the CSRF
// middleware, which puts the masked token in the request context.
func (h *AdminAuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	token := middleware.CSRFToken(r)
	w.Header().Set(middleware.CSRFHeader, token)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, csrfResponse{Token: token})
}
