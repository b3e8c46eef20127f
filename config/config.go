package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv    string
	API       APIConfig
	Session   SessionConfig
	DB        DatabaseConfig
	Valkey    ValkeyConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Sandbox   SandboxConfig
}

type APIConfig struct {
	BaseURL         string
	Timeout         time.Duration
	PollInterval    time.Duration
	ProfileCacheTTL time.Duration
}

type SessionConfig struct {
	Backend string
	Path    string
}

type DatabaseConfig struct {
	Engine   string
	Path     string
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	SSLMode  string
}

type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type LogConfig struct {
	Level string
}

type TelemetryConfig struct {
	ServiceName          string
	ServiceVersion       string
	OTLPEndpoint         string
	OTLPTracesEndpoint   string
	OTLPMetricsEndpoint  string
	OTLPProtocol         string
	OTLPHeaders          map[string]string
	OTLPInsecure         bool
	ExportTimeout        time.Duration
	MetricExportInterval time.Duration
}

type SandboxConfig struct {
	Port             string
	JWTSecret        []byte
	Issuer           string
	TokenTTL         time.Duration
	AutoApproveAfter int
	AllowedOrigins   []string
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendValkey   = "valkey"
	BackendMemory   = "memory"
)

var userHomeDir = os.UserHomeDir

func Load() (Config, error) {
	appEnv := getEnv("APP_ENV", "dev")

	baseURL := strings.TrimSpace(getEnv("API_BASE_URL", "http://127.0.0.1:8000/api/v1/"))
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return Config{}, fmt.Errorf("invalid API_BASE_URL: %s", baseURL)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return Config{}, errors.New("POLL_INTERVAL must be positive")
	}
	cacheTTL, err := time.ParseDuration(getEnv("PROFILE_CACHE_TTL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PROFILE_CACHE_TTL: %w", err)
	}

	backend := strings.ToLower(getEnv("SESSION_BACKEND", BackendSQLite))
	switch backend {
	case BackendSQLite, BackendPostgres, BackendValkey, BackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid SESSION_BACKEND: %s", backend)
	}

	valkeyDB, err := strconv.Atoi(getEnv("VALKEY_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid VALKEY_DB: %w", err)
	}

	exportTimeout, err := time.ParseDuration(getEnv("OTEL_EXPORTER_OTLP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_TIMEOUT: %w", err)
	}
	metricInterval, err := time.ParseDuration(getEnv("OTEL_METRIC_EXPORT_INTERVAL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_METRIC_EXPORT_INTERVAL: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("SANDBOX_TOKEN_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SANDBOX_TOKEN_TTL: %w", err)
	}
	autoApprove, err := strconv.Atoi(getEnv("SANDBOX_AUTO_APPROVE_AFTER", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SANDBOX_AUTO_APPROVE_AFTER: %w", err)
	}

	sessionPath := getEnv("SESSION_PATH", "")
	if sessionPath == "" {
		sessionPath = defaultSessionPath()
	}

	dbSSLMode := getEnv("DB_SSLMODE", "")
	if dbSSLMode == "" {
		if appEnv == "prod" {
			dbSSLMode = "require"
		} else {
			dbSSLMode = "disable"
		}
	}

	engine := backend
	if engine != BackendPostgres {
		engine = BackendSQLite
	}

	cfg := Config{
		AppEnv: appEnv,
		API: APIConfig{
			BaseURL:         baseURL,
			Timeout:         timeout,
			PollInterval:    pollInterval,
			ProfileCacheTTL: cacheTTL,
		},
		Session: SessionConfig{
			Backend: backend,
			Path:    sessionPath,
		},
		DB: DatabaseConfig{
			Engine:   engine,
			Path:     sessionPath,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", ""),
			Username: getEnv("DB_USERNAME", ""),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  dbSSLMode,
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       valkeyDB,
			Prefix:   getEnv("VALKEY_PREFIX", "ume:session"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:          getEnv("OTEL_SERVICE_NAME", "ume-client"),
			ServiceVersion:       getEnv("OTEL_SERVICE_VERSION", "dev"),
			OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPTracesEndpoint:   getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
			OTLPMetricsEndpoint:  getEnv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ""),
			OTLPProtocol:         getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			OTLPHeaders:          parseHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", appEnv != "prod"),
			ExportTimeout:        exportTimeout,
			MetricExportInterval: metricInterval,
		},
		Sandbox: SandboxConfig{
			Port:             getEnv("SANDBOX_PORT", "8000"),
			JWTSecret:        []byte(getEnv("SANDBOX_JWT_SECRET", "sandbox-secret")),
			Issuer:           getEnv("SANDBOX_JWT_ISSUER", "ume-sandbox"),
			TokenTTL:         tokenTTL,
			AutoApproveAfter: autoApprove,
			AllowedOrigins:   parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
	}

	if backend == BackendPostgres && (cfg.DB.Name == "" || cfg.DB.Username == "") {
		return Config{}, errors.New("DB_NAME and DB_USERNAME must be set for the postgres session backend")
	}

	return cfg, nil
}

func defaultSessionPath() string {
	home, err := userHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".ume", "session.db")
	}
	return filepath.Join(home, ".ume", "session.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	var results []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

// parseHeaders reads the OTLP "key=value,key2=value2" header format.
func parseHeaders(value string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range parseCSV(value) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(val)
	}
	return headers
}
