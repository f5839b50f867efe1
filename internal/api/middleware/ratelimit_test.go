package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/config"
)

func tierRequest(tier RateLimitTier, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", nil)
	req.RemoteAddr = remote
	return req.WithContext(WithRateLimitTier(req.Context(), tier))
}

func TestLoginRateLimit_BlocksAfterBurst(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{LoginPer15Minutes: 5}, "test")(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tierRequest(TierLogin, "192.168.1.100:12345"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tierRequest(TierLogin, "192.168.1.100:12345"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "180", rec.Header().Get("Retry-After"))
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestLoginRateLimit_PerIPIsolation(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{LoginPer15Minutes: 1}, "test")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tierRequest(TierLogin, "10.0.0.1:1000"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, tierRequest(TierLogin, "10.0.0.2:1000"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, tierRequest(TierLogin, "10.0.0.1:1001"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_TiersAreIndependent(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 1, AdminPerMinute: 1}
	handler := RateLimit(cfg, "test")(okHandler())

	for _, tier := range []RateLimitTier{TierPublic, TierAdmin} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tierRequest(tier, "10.0.0.1:1000"))
		require.Equal(t, http.StatusOK, rec.Code, string(tier))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tierRequest(TierPublic, "10.0.0.1:1000"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{}, "test")(okHandler())

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tierRequest(TierLogin, "10.0.0.1:1000"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_DefaultsToPublicTier(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{PublicPerMinute: 1}, "test")(okHandler())

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/public/products", nil)
		r.RemoteAddr = "10.0.0.9:1000"
		return r
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestClientKey(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "forwarded from trusted proxy", remote: "10.1.2.3:80", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.1.2.3"}, want: "203.0.113.5"},
		{name: "real ip from trusted proxy", remote: "10.1.2.3:80", headers: map[string]string{"X-Real-IP": "203.0.113.6"}, want: "203.0.113.6"},
		{name: "spoofed header from untrusted peer", remote: "198.51.100.7:80", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, want: "198.51.100.7"},
		{name: "remote addr without port", remote: "198.51.100.8", want: "198.51.100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, clientKey(req, trusted))
		})
	}
}

func TestLimiterStore_CleanupDropsIdleEntries(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 10})
	defer store.Stop()

	require.NotNil(t, store.limiter(TierPublic, "10.0.0.1"))
	store.cleanup(time.Now().Add(loginWindow + time.Minute))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Empty(t, store.limiters)
}
