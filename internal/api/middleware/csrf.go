package middleware

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/vitrin-cms/server/internal/api/problem"
)

// CSRFHeader carries the token on unsafe cookie-authenticated requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFProtection guards cookie-authenticated admin requests with gorilla/csrf
// (double-submit cookie, token in the X-CSRF-Token header). Requests carrying
// a Bearer token skip the check since browsers never attach that header on
// their own. When secure is false the request is marked plaintext so local
// HTTP development passes the origin checks.
func CSRFProtection(authKey []byte, secure bool, env string) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(csrfErrorHandler(env)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if HasBearerToken(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfErrorHandler(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := csrf.FailureReason(r)
		if reason == nil {
			reason = errors.New("csrf validation failed")
		}
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "CSRF token validation failed", reason, env)
	})
}

// CSRFToken returns the token for the current request.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}
