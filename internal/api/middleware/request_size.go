package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize applies to JSON request bodies.
	DefaultMaxBodySize int64 = 1 << 20

	// AdminMaxBodySize covers rich-text documents in admin payloads.
	AdminMaxBodySize int64 = 5 << 20
)

// RequestSize wraps the body in http.MaxBytesReader; decoding past the limit
// fails with *http.MaxBytesError, which handlers report as 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PublicRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}

func AdminRequestSize() func(http.Handler) http.Handler {
	return RequestSize(AdminMaxBodySize)
}
