package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	DBDriver                string
	PostgresConnStr         string
	SQLitePath              string
	MongoURI                string
	MongoDatabase           string
	SessionSecret           string
	JWTSecret               string
	FirebaseCredentialsPath string
	CORSOrigins             []string
	// BodyLimit caps request bodies, image uploads included. echo size syntax, e.g. "10M".
	BodyLimit string
}

// Load reads the configuration from the environment, loading a .env file first if present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DBDriver:                getEnv("DB_DRIVER", DriverPostgres),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		SQLitePath:              getEnv("SQLITE_PATH", "swaply.db"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "swaply"),
		SessionSecret:           os.Getenv("SESSION_SECRET"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		CORSOrigins:             splitList(getEnv("CORS_ORIGINS", "")),
		BodyLimit:               getEnv("BODY_LIMIT", "10M"),
	}
}

// Development fallbacks for the signing secrets. They are public, so Validate
// refuses them in production.
const (
	devSessionSecret = "dev-session-secret-change-me"
	devJWTSecret     = "supersecretjwtkey"
)

var ErrMissingSecret = errors.New("secret not configured")

// Validate checks that the config is safe to serve with. Outside production
// unset signing secrets fall back to the development values; in production
// they must be set explicitly since sessions and tokens both authenticate users.
func (c *Config) Validate() error {
	secrets := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"SESSION_SECRET", &c.SessionSecret, devSessionSecret},
		{"JWT_SECRET", &c.JWTSecret, devJWTSecret},
	}
	for _, s := range secrets {
		if *s.value != "" && (!c.IsProduction() || *s.value != s.fallback) {
			continue
		}
		if c.IsProduction() {
			return fmt.Errorf("%s: %w", s.key, ErrMissingSecret)
		}
		*s.value = s.fallback
		log.Warn().Str("key", s.key).Msg("Using development secret; set it before deploying")
	}
	return nil
}

// IsProduction reports whether cookies and logs should use production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
