package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/domain/media"
)

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	_, err := New(config.ObjectStoreConfig{Endpoint: "storage.googleapis.com"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ObjectStoreConfig
		key  string
		want string
	}{
		{
			name: "firebase bucket on gcs interop endpoint",
			cfg: config.ObjectStoreConfig{
				Endpoint: "https://storage.googleapis.com", Bucket: "acme.appspot.com", UseSSL: true,
			},
			key:  "uploads/2026/03/a.jpg",
			want: "https://storage.googleapis.com/acme.appspot.com/uploads/2026/03/a.jpg",
		},
		{
			name: "cdn base url",
			cfg: config.ObjectStoreConfig{
				Endpoint: "localhost:9000", Bucket: "media", PublicBaseURL: "https://cdn.example.com/",
			},
			key:  "team/photo 1.png",
			want: "https://cdn.example.com/team/photo%201.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg)
			require.NoError(t, err)
			require.Equal(t, media.BackendObjectStore, store.Name())
			require.Equal(t, tt.want, store.PublicURL(tt.key))
		})
	}
}
