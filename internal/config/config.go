package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Locales        LocalesConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Logging        LoggingConfig
	Tracing        TracingConfig
	Storage        StorageConfig
	Redis          RedisConfig
	Search         SearchConfig
	Weather        WeatherConfig
	Assistant      AssistantConfig
	Video          VideoConfig
	Email          EmailConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
	// SiteURL is the public website that consumes the public API.
	SiteURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
	MigrationsPath string
}

type AuthConfig struct {
	JWTSecret    string
	JWTExpiry    time.Duration
	CookieSecure bool
	CSRFKey      string
}

type LocalesConfig struct {
	Default   string
	Supported []string
}

type RateLimitConfig struct {
	PublicPerMinute   int
	AdminPerMinute    int
	LoginPer15Minutes int
	TrustedProxyCIDRs []string
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type StorageConfig struct {
	DefaultBackend string
	MaxUploadBytes int64
	FileService    FileServiceConfig
	ObjectStore    ObjectStoreConfig
}

type FileServiceConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// ObjectStoreConfig points at any S3-compatible endpoint. Firebase Storage
// buckets are reached through storage.googleapis.com with HMAC keys.
type ObjectStoreConfig struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

type RedisConfig struct {
	URL string
}

type SearchConfig struct {
	MeiliURL string
	MeiliKey string
}

type WeatherConfig struct {
	APIURL   string
	APIKey   string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type AssistantConfig struct {
	APIKey string
	Model  string
}

type VideoConfig struct {
	Enabled    bool
	FFmpegPath string
	CRF        int
	Preset     string
}

type EmailConfig struct {
	Enabled      bool
	From         string
	ResendAPIKey string
}

type AdminBootstrapConfig struct {
	Username string
	Password string
	Email    string
}

// Load reads configuration from environment variables only.
func Load() (Config, error) {
	return load(source{})
}

// LoadFile reads a YAML file of KEY: value pairs (same names as the
// environment variables) and layers the environment on top of it.
func LoadFile(path string) (Config, error) {
	values, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	return load(source{file: values})
}

func load(src source) (Config, error) {
	env := src.get("ENVIRONMENT", "development")
	cfg := Config{
		Server: ServerConfig{
			Host:    src.get("SERVER_HOST", "0.0.0.0"),
			Port:    src.getInt("SERVER_PORT", 8080),
			BaseURL: src.get("SERVER_BASE_URL", "http://localhost:8080"),
			SiteURL: src.get("SITE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:            src.get("DATABASE_URL", ""),
			MaxConnections: src.getInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdle:        src.getInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			MigrationsPath: src.get("DATABASE_MIGRATIONS_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret:    src.get("JWT_SECRET", ""),
			JWTExpiry:    time.Duration(src.getInt("JWT_EXPIRY_HOURS", 12)) * time.Hour,
			CookieSecure: src.getBool("AUTH_COOKIE_SECURE", env == "production"),
			CSRFKey:      src.get("CSRF_KEY", ""),
		},
		Locales: LocalesConfig{
			Default:   strings.ToLower(src.get("LOCALE_DEFAULT", "en")),
			Supported: lowerAll(src.getList("LOCALES", []string{"en"})),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   src.getInt("RATE_LIMIT_PUBLIC", 120),
			AdminPerMinute:    src.getInt("RATE_LIMIT_ADMIN", 0),
			LoginPer15Minutes: src.getInt("RATE_LIMIT_LOGIN", 5),
			TrustedProxyCIDRs: src.getList("TRUSTED_PROXY_CIDRS", nil),
		},
		CORS: CORSConfig{
			AllowAllOrigins: env == "development" || env == "test",
			AllowedOrigins:  src.getList("CORS_ALLOWED_ORIGINS", nil),
		},
		Logging: LoggingConfig{
			Level:  src.get("LOG_LEVEL", "info"),
			Format: src.get("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      src.getBool("TRACING_ENABLED", false),
			Exporter:     src.get("TRACING_EXPORTER", "stdout"),
			ServiceName:  src.get("TRACING_SERVICE_NAME", "vitrin-server"),
			OTLPEndpoint: src.get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   src.getFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Storage: StorageConfig{
			DefaultBackend: src.get("STORAGE_DEFAULT_BACKEND", "objectstore"),
			MaxUploadBytes: int64(src.getInt("STORAGE_MAX_UPLOAD_MB", 100)) << 20,
			FileService: FileServiceConfig{
				URL:      src.get("FILE_SERVICE_URL", ""),
				Username: src.get("FILE_SERVICE_USERNAME", ""),
				Password: src.get("FILE_SERVICE_PASSWORD", ""),
				Timeout:  time.Duration(src.getInt("FILE_SERVICE_TIMEOUT_SECONDS", 60)) * time.Second,
			},
			ObjectStore: ObjectStoreConfig{
				Endpoint:      src.get("OBJECT_STORE_ENDPOINT", ""),
				Bucket:        src.get("OBJECT_STORE_BUCKET", ""),
				Region:        src.get("OBJECT_STORE_REGION", "auto"),
				AccessKey:     src.get("OBJECT_STORE_ACCESS_KEY", ""),
				SecretKey:     src.get("OBJECT_STORE_SECRET_KEY", ""),
				UseSSL:        src.getBool("OBJECT_STORE_USE_SSL", true),
				PublicBaseURL: src.get("OBJECT_STORE_PUBLIC_BASE_URL", ""),
			},
		},
		Redis: RedisConfig{
			URL: src.get("REDIS_URL", ""),
		},
		Search: SearchConfig{
			MeiliURL: src.get("MEILI_URL", ""),
			MeiliKey: src.get("MEILI_MASTER_KEY", ""),
		},
		Weather: WeatherConfig{
			APIURL:   src.get("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5/weather"),
			APIKey:   src.get("WEATHER_API_KEY", ""),
			CacheTTL: time.Duration(src.getInt("WEATHER_CACHE_MINUTES", 10)) * time.Minute,
			Timeout:  time.Duration(src.getInt("WEATHER_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Assistant: AssistantConfig{
			APIKey: src.get("GEMINI_API_KEY", ""),
			Model:  src.get("ASSISTANT_MODEL", "gemini-2.5-flash"),
		},
		Video: VideoConfig{
			Enabled:    src.getBool("VIDEO_COMPRESSION_ENABLED", false),
			FFmpegPath: src.get("FFMPEG_PATH", "ffmpeg"),
			CRF:        src.getInt("VIDEO_CRF", 28),
			Preset:     src.get("VIDEO_PRESET", "veryfast"),
		},
		Email: EmailConfig{
			Enabled:      src.getBool("EMAIL_ENABLED", false),
			From:         src.get("EMAIL_FROM", "noreply@localhost"),
			ResendAPIKey: src.get("RESEND_API_KEY", ""),
		},
		AdminBootstrap: AdminBootstrapConfig{
			Username: src.get("ADMIN_USERNAME", ""),
			Password: src.get("ADMIN_PASSWORD", ""),
			Email:    src.get("ADMIN_EMAIL", ""),
		},
		Environment: env,
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if env == "production" && len(cfg.Auth.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if env == "production" && len(cfg.CORS.AllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	if !contains(cfg.Locales.Supported, cfg.Locales.Default) {
		return Config{}, fmt.Errorf("LOCALE_DEFAULT %q is not listed in LOCALES", cfg.Locales.Default)
	}
	switch cfg.Storage.DefaultBackend {
	case "objectstore", "fileservice":
	default:
		return Config{}, fmt.Errorf("STORAGE_DEFAULT_BACKEND must be objectstore or fileservice")
	}
	if cfg.Video.CRF < 0 || cfg.Video.CRF > 51 {
		return Config{}, fmt.Errorf("VIDEO_CRF must be between 0 and 51")
	}
	if cfg.Auth.CSRFKey == "" {
		// gorilla/csrf needs 32 bytes; derive from the JWT secret when unset.
		cfg.Auth.CSRFKey = padKey(cfg.Auth.JWTSecret)
	}
	return cfg, nil
}

// IsDevelopment reports whether detailed errors may be exposed to clients.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

type source struct {
	file map[string]string
}

func (s source) get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return fallback
}

func (s source) getInt(key string, fallback int) int {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getFloat(key string, fallback float64) float64 {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getBool(key string, fallback bool) bool {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getList(key string, fallback []string) []string {
	value := s.get(key, "")
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func padKey(secret string) string {
	key := []byte(secret)
	for len(key) < 32 {
		key = append(key, key...)
	}
	return string(key[:32])
}
