package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"guestbook/internal/config"
	"guestbook/internal/repository"
)

type postgresBackend struct {
	pool *pgxpool.Pool
	repo *repository.PgMessageRepository
}

// postgresDSN arma la URL de conexion; url.UserPassword escapa credenciales.
func postgresDSN(cfg config.DatabaseConfig) string {
	sslMode := "disable"
	if cfg.SSL {
		sslMode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Address(),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	poolCfg, err := pgxpool.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = cfg.PingTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &postgresBackend{pool: pool, repo: repository.NewPgMessageRepository(pool)}, nil
}

func (b *postgresBackend) Driver() string { return config.DriverPostgres }

func (b *postgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *postgresBackend) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements[config.DriverPostgres] {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *postgresBackend) Messages() repository.MessageRepository { return b.repo }

func (b *postgresBackend) Stats() PoolStats {
	s := b.pool.Stat()
	return PoolStats{
		MaxConns:   int(s.MaxConns()),
		TotalConns: int(s.TotalConns()),
		InUse:      int(s.AcquiredConns()),
		Idle:       int(s.IdleConns()),
	}
}

func (b *postgresBackend) Close() {
	b.pool.Close()
}
