package middleware

import (
	"context"
	"net/http"

	"github.com/vitrin-cms/server/internal/api/problem"
)

// maintenanceRetryAfter is sent with 503 responses while maintenance is on.
const maintenanceRetryAfter = "300"

// MaintenanceChecker reports whether the site is in maintenance mode.
type MaintenanceChecker interface {
	MaintenanceMode(ctx context.Context) (bool, error)
}

// Maintenance answers 503 while the maintenance_mode setting is on. A nil
// checker disables the gate. Lookup failures let the request through.
func Maintenance(checker MaintenanceChecker, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if checker == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			on, err := checker.MaintenanceMode(r.Context())
			if err != nil {
				LoggerFromContext(r.Context()).Warn().Err(err).Msg("maintenance check failed")
			} else if on {
				w.Header().Set("Retry-After", maintenanceRetryAfter)
				problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeMaintenance, "Site under maintenance", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
