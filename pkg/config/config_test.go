package config

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DB_DRIVER", "SQLITE_PATH", "MONGO_URI", "FIREBASE_CREDENTIALS_PATH", "CORS_ORIGINS", "BODY_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Empty(t, cfg.MongoURI)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, "10M", cfg.BodyLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/swaply.db")
	t.Setenv("CORS_ORIGINS", "https://swaply.app, ,http://localhost:3000")

	cfg := Load()
	assert.Equal(t, []string{"https://swaply.app", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "file:/tmp/swaply.db?_foreign_keys=on&_busy_timeout=5000", SQLiteDSN(cfg.SQLitePath))
}

func TestValidateFillsDevelopmentSecrets(t *testing.T) {
	cfg := &Config{Env: "development"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, devSessionSecret, cfg.SessionSecret)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
}

func TestValidateRequiresSecretsInProduction(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"no secrets":            {Env: "production"},
		"no session secret":     {Env: "production", JWTSecret: "jwt-from-vault"},
		"no jwt secret":         {Env: "production", SessionSecret: "session-from-vault"},
		"public session secret": {Env: "production", SessionSecret: devSessionSecret, JWTSecret: "jwt-from-vault"},
		"public jwt secret":     {Env: "production", SessionSecret: "session-from-vault", JWTSecret: devJWTSecret},
	} {
		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrMissingSecret, name)
	}

	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "jwt-from-vault")
	cfg := Load()
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingSecret)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "session-from-vault")
	cfg = Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "session-from-vault", cfg.SessionSecret)
	assert.Equal(t, "jwt-from-vault", cfg.JWTSecret)
}

func TestInitDBRequiresPostgresConnStr(t *testing.T) {
	_, err := InitDB(&Config{DBDriver: DriverPostgres})
	require.Error(t, err)

	_, err = InitDB(&Config{DBDriver: "oracle"})
	require.Error(t, err)
}

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(&Config{DBDriver: DriverSQLite, SQLitePath: t.TempDir() + "/test.db"})
	require.NoError(t, err)
	defer db.CloseDB()

	assert.NotNil(t, db.SQL)
	assert.Nil(t, db.Mongo)
}

func TestSetupMiddleware(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, &Config{BodyLimit: "1K", CORSOrigins: []string{"https://swaply.app"}})
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ok"))
	req.Header.Set(echo.HeaderOrigin, "https://swaply.app")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "https://swaply.app", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))

	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 2048)))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
