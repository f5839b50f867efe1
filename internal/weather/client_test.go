package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "name": "Istanbul",
  "sys": {"country": "TR"},
  "main": {"temp": 18.4, "feels_like": 17.9, "humidity": 72},
  "weather": [{"description": "açık", "icon": "01d"}]
}`

func TestClientCurrentByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "Istanbul", q.Get("q"))
		require.Equal(t, "secret", q.Get("appid"))
		require.Equal(t, "metric", q.Get("units"))
		require.Equal(t, "tr", q.Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", WithHTTPClient(srv.Client()), WithRateLimit(100))
	report, err := client.Current(context.Background(), Query{City: "Istanbul"}, "tr")
	require.NoError(t, err)
	require.Equal(t, "Istanbul", report.City)
	require.Equal(t, "TR", report.Country)
	require.InDelta(t, 18.4, report.TemperatureC, 0.001)
	require.Equal(t, 72, report.Humidity)
	require.Equal(t, "açık", report.Description)
	require.Equal(t, "01d", report.Icon)
}

func TestClientCurrentByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "41.0082", q.Get("lat"))
		require.Equal(t, "28.9784", q.Get("lon"))
		require.Empty(t, q.Get("q"))
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	lat, lon := 41.0082, 28.9784
	client := NewClient(srv.URL, "secret", WithRateLimit(100))
	_, err := client.Current(context.Background(), Query{Lat: &lat, Lon: &lon}, "")
	require.NoError(t, err)
}

func TestClientCurrentErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"cod":"404","message":"city not found"}`, want: ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"cod":401}`, want: ErrUpstream},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", want: ErrUpstream},
		{name: "malformed json", status: http.StatusOK, body: "{", want: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "secret", WithRateLimit(100))
			_, err := client.Current(context.Background(), Query{City: "Nowhere"}, "en")
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClientNotConfigured(t *testing.T) {
	client := NewClient("https://example.invalid", "")
	_, err := client.Current(context.Background(), Query{City: "Ankara"}, "en")
	require.ErrorIs(t, err, ErrNotConfigured)
}
