package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("SESSION_PATH", "/tmp/ume/session.db")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "http://127.0.0.1:8000/api/v1/", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3*time.Second, cfg.API.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.API.ProfileCacheTTL)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, BackendSQLite, cfg.DB.Engine)
	assert.Equal(t, "/tmp/ume/session.db", cfg.DB.Path)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "ume:session", cfg.Valkey.Prefix)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("API_BASE_URL", "https://api.ume.example/api/v1")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("PROFILE_CACHE_TTL", "5m")
	t.Setenv("SESSION_BACKEND", "VALKEY")
	t.Setenv("VALKEY_DB", "2")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=abc, tenant = ume,broken")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.com, http://b.com")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "https://api.ume.example/api/v1/", cfg.API.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.API.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.API.ProfileCacheTTL)
	assert.Equal(t, BackendValkey, cfg.Session.Backend)
	assert.Equal(t, 2, cfg.Valkey.DB)
	assert.Equal(t, "require", cfg.DB.SSLMode)
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "ume"}, cfg.Telemetry.OTLPHeaders)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Sandbox.AllowedOrigins)
	assert.False(t, cfg.Telemetry.OTLPInsecure)
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]string{
		"API_BASE_URL":               "ftp://nope",
		"HTTP_TIMEOUT":               "soon",
		"POLL_INTERVAL":              "-1s",
		"PROFILE_CACHE_TTL":          "forever",
		"SESSION_BACKEND":            "etcd",
		"VALKEY_DB":                  "one",
		"SANDBOX_TOKEN_TTL":          "x",
		"SANDBOX_AUTO_APPROVE_AFTER": "x",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPostgresRequiresDatabase(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "postgres")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_USERNAME", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_NAME", "ume")
	t.Setenv("DB_USERNAME", "device")
	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.DB.Engine)
}

func TestDefaultSessionPathFallsBack(t *testing.T) {
	original := userHomeDir
	defer func() { userHomeDir = original }()

	userHomeDir = func() (string, error) { return "", errors.New("no home") }
	assert.Equal(t, filepath.Join(".ume", "session.db"), defaultSessionPath())

	userHomeDir = func() (string, error) { return "/home/ume", nil }
	assert.Equal(t, filepath.Join("/home/ume", ".ume", "session.db"), defaultSessionPath())
}

func TestGetEnvUsesFallback(t *testing.T) {
	t.Setenv("TEST_ENV", "")
	assert.Equal(t, "fallback", getEnv("TEST_ENV", "fallback"))

	t.Setenv("TEST_ENV", "value")
	assert.Equal(t, "value", getEnv("TEST_ENV", "fallback"))
}

func TestGetEnvBoolFallback(t *testing.T) {
	t.Setenv("TEST_BOOL", "")
	assert.True(t, getEnvBool("TEST_BOOL", true))

	t.Setenv("TEST_BOOL", "not-bool")
	assert.False(t, getEnvBool("TEST_BOOL", false))
}

func TestParseCSVTrimsValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, parseCSV("a, b,, ,c"))
}
