package db

import (
	"context"
	"fmt"

	"guestbook/internal/config"
	"guestbook/internal/repository"
)

// Backend es el conjunto de capacidades que cada motor expone al Manager.
type Backend interface {
	Driver() string
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Messages() repository.MessageRepository
	Stats() PoolStats
	Close()
}

// PoolStats resume el estado del pool para health y metricas.
type PoolStats struct {
	MaxConns   int
	TotalConns int
	InUse      int
	Idle       int
}

// Opener crea un Backend sin verificarlo; el Manager hace ping y schema.
type Opener func(ctx context.Context, cfg config.DatabaseConfig) (Backend, error)

// OpenBackend elige la implementacion segun cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	case config.DriverMySQL:
		return openMySQL(cfg)
	case config.DriverSQLite:
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}
