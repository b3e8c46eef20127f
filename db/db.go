package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"ume-client/config"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// Schema is applied on every connect; it must stay idempotent.
const Schema = `CREATE TABLE IF NOT EXISTS session_kv (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

var (
	openDB   = sql.Open
	mkdirAll = os.MkdirAll
)

// Connect opens the session database for the configured engine and makes sure
// the session table exists.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	var (
		driver string
		dsn    string
	)

	switch cfg.Engine {
	case config.BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite session path is empty")
		}
		if err := mkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("error creating session directory: %w", err)
		}
		driver = "sqlite3"
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000", cfg.Path)
	case config.BackendPostgres:
		driver = "postgres"
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode)
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Engine)
	}

	conn, err := openDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if cfg.Engine == config.BackendSQLite {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error applying session schema: %w", err)
	}

	log.Info("session database ready", zap.String("engine", cfg.Engine))
	return conn, nil
}
