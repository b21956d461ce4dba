package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

// AuthConfig keeps raw env values; service.NewAuthService parses and validates them.
type AuthConfig struct {
	SessionTTL           string
	SessionSweepInterval string
	CookieSecure         string
	CookieSameSite       string
	CookieDomain         string
	CookiePath           string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	loadEnvFiles()

	return Config{
		Server: ServerConfig{
			Port:    getenv("PORT", "8000"),
			GinMode: getenv("GIN_MODE", "release"),
		},
		Auth: AuthConfig{
			SessionTTL:           getenv("SESSION_TTL", "168h"),
			SessionSweepInterval: getenv("SESSION_SWEEP_INTERVAL", "1h"),
			CookieSecure:         os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite:       getenv("AUTH_COOKIE_SAMESITE", "strict"),
			CookieDomain:         os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:           getenv("AUTH_COOKIE_PATH", "/"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:4200")),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

// loadEnvFiles never overrides variables already present in the environment.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
