package store

import (
	"context"
	"errors"
	"fmt"

	"ume-client/config"
	"ume-client/db"

	"go.uber.org/zap"
)

// Store is a durable key/value store. Writes are last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrUnsupportedBackend = errors.New("unsupported session backend")

var connectDB = db.Connect

// Open builds the store selected by cfg.Session.Backend.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Session.Backend {
	case config.BackendSQLite, config.BackendPostgres:
		conn, err := connectDB(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(conn), nil
	case config.BackendValkey:
		kv, err := NewValkeyStore(ctx, cfg.Valkey)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Session.Backend)
	}
}
