package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/api/problem"
	"github.com/vitrin-cms/server/internal/auth"
)

// AuthCookieName holds the admin JWT for browser sessions.
const AuthCookieName = "vitrin_token"

// Authenticate requires a valid admin JWT, taken from the Authorization
// Bearer header or, failing that, from the session cookie. Claims are
// stored with auth.WithClaims and the request logger gains the username.
func Authenticate(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, ok := requestToken(r)
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing credentials", auth.ErrMissingToken, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			logger := zerolog.Ctx(ctx).With().Str("admin_user", claims.Username).Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role ranks below min.
// It must run after Authenticate.
func RequireRole(min auth.Role, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.ClaimsFrom(r.Context())
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			if !auth.Allows(claims.Role, min) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", problem.ErrForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminClaims returns the authenticated admin for r, or nil.
func AdminClaims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	return auth.ClaimsFrom(r.Context())
}

// HasBearerToken reports whether the request authenticates with a header
// rather than the cookie. Such requests are not exposed to CSRF.
func HasBearerToken(r *http.Request) bool {
	_, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	return err == nil
}

func requestToken(r *http.Request) (string, bool) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		token, err := auth.TokenFromHeader(header)
		if err != nil || token == "" {
			return "", false
		}
		return token, true
	}
	cookie, err := r.Cookie(AuthCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}
