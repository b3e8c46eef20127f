package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"ume-client/client"
	"ume-client/config"
	"ume-client/handlers"
	"ume-client/logger"
	"ume-client/onboarding"
	"ume-client/routes"
	"ume-client/secretmanager"
	"ume-client/store"
	"ume-client/telemetry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	clientSecretName   = "prod/ume-client"
	postgresSecretName = "prod/postgres"
	valkeySecretName   = "prod/valkey"
)

var (
	loadEnv        = godotenv.Load
	loadConfig     = config.Load
	newLogger      = logger.New
	initTelemetry  = telemetry.Init
	openStore      = store.Open
	listenAndServe = http.ListenAndServe
	getSecret      = secretmanager.GetSecret
	setEnv         = os.Setenv
	logFatal       = log.Fatal

	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

func loadSecretMap(secretName string) (map[string]string, error) {
	secretJSON, err := getSecret(secretName)
	if err != nil {
		return nil, err
	}
	secrets := make(map[string]string)
	if err := json.Unmarshal([]byte(secretJSON), &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func setEnvFromMap(values map[string]string) error {
	for key, value := range values {
		if err := setEnv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

type postgresSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Engine   string `json:"engine"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

func validatePostgresSecret(secret postgresSecret) error {
	switch {
	case secret.Username == "", secret.Password == "", secret.Host == "", secret.DBName == "":
		return errors.New("postgres secret is missing required fields")
	case secret.Port <= 0:
		return fmt.Errorf("postgres secret has invalid port %d", secret.Port)
	}
	return nil
}

func loadPostgresSecret() (postgresSecret, error) {
	raw, err := getSecret(postgresSecretName)
	if err != nil {
		return postgresSecret{}, fmt.Errorf("error retrieving Postgres secret: %w", err)
	}
	var secret postgresSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return postgresSecret{}, fmt.Errorf("error parsing Postgres secret JSON: %w", err)
	}
	if err := validatePostgresSecret(secret); err != nil {
		return postgresSecret{}, err
	}
	return secret, nil
}

// loadProdSecrets copies the production secrets into the environment before
// config.Load reads it. The Postgres secret is only needed for the postgres
// session backend; the Valkey secret is optional.
func loadProdSecrets() error {
	clientSecrets, err := loadSecretMap(clientSecretName)
	if err != nil {
		return fmt.Errorf("error retrieving client secret: %w", err)
	}
	if err := setEnvFromMap(clientSecrets); err != nil {
		return err
	}

	if os.Getenv("SESSION_BACKEND") == config.BackendPostgres {
		pg, err := loadPostgresSecret()
		if err != nil {
			return err
		}
		pgEnv := []struct{ key, value string }{
			{"DB_USERNAME", pg.Username},
			{"DB_PASSWORD", pg.Password},
			{"DB_HOST", pg.Host},
			{"DB_PORT", fmt.Sprintf("%d", pg.Port)},
			{"DB_NAME", pg.DBName},
		}
		for _, kv := range pgEnv {
			if err := setEnv(kv.key, kv.value); err != nil {
				return fmt.Errorf("set %s: %w", kv.key, err)
			}
		}
	}

	valkeySecrets, err := loadSecretMap(valkeySecretName)
	if err == nil {
		if err := setEnvFromMap(valkeySecrets); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		logFatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage())
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", name, usage())
	}

	if err := loadEnv(); err != nil {
		log.Println("No .env file found; using system environment variables")
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	if appEnv == "prod" {
		if err := loadProdSecrets(); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	zlog, err := newLogger(cfg.Log.Level, cfg.AppEnv)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck
	restore := zap.ReplaceGlobals(zlog)
	defer restore()

	shutdown, err := initTelemetry(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			zlog.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if name == "sandbox" {
		return serveSandbox(cfg, zlog)
	}

	kv, err := openStore(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("session store error: %w", err)
	}
	defer kv.Close()

	session := store.NewSession(kv)
	api, err := client.New(cfg.API, session, zlog)
	if err != nil {
		return err
	}
	controller := onboarding.NewController(api, session, onboarding.Options{
		PollInterval:    cfg.API.PollInterval,
		ProfileCacheTTL: cfg.API.ProfileCacheTTL,
	}, zlog)
	defer controller.Close()

	a := &app{
		api:        api,
		session:    session,
		controller: controller,
		in:         newPrompter(stdin, stdout),
		out:        stdout,
		log:        zlog,
	}
	return cmd.run(ctx, a, args)
}

func serveSandbox(cfg config.Config, zlog *zap.Logger) error {
	backend := handlers.NewBackend(cfg.Sandbox, zlog)
	handler := routes.NewHandler(cfg, backend, zlog)

	port := cfg.Sandbox.Port
	if port == "" {
		port = "8000"
	}
	zlog.Info("starting sandbox backend",
		zap.String("port", port),
		zap.Strings("cors", cfg.Sandbox.AllowedOrigins),
		zap.Int("auto_approve_after", cfg.Sandbox.AutoApproveAfter),
	)
	return listenAndServe(":"+port, handler)
}
