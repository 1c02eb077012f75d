package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"guestbook/internal/config"
	"guestbook/internal/repository"
)

// sqlBackend cubre los motores que van por database/sql (mysql y sqlite).
type sqlBackend struct {
	driver string
	db     *sql.DB
	repo   *repository.SQLMessageRepository
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Address()
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Collation = "utf8mb4_unicode_ci"
	mc.Timeout = cfg.PingTimeout
	mc.Params = map[string]string{"time_zone": "'+00:00'"}
	if cfg.SSL {
		mc.TLSConfig = "true"
		if cfg.SSLSkipVerify {
			mc.TLSConfig = "skip-verify"
		}
	}
	return mc.FormatDSN()
}

// sqliteDSN activa WAL y busy_timeout para tolerar escrituras concurrentes.
func sqliteDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
}

func openMySQL(cfg config.DatabaseConfig) (Backend, error) {
	return openSQL(config.DriverMySQL, "mysql", mysqlDSN(cfg), cfg)
}

func openSQLite(cfg config.DatabaseConfig) (Backend, error) {
	return openSQL(config.DriverSQLite, "sqlite", sqliteDSN(cfg), cfg)
}

func openSQL(driver, driverName, dsn string, cfg config.DatabaseConfig) (Backend, error) {
	database, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	database.SetMaxOpenConns(cfg.MaxConns)
	database.SetMaxIdleConns(cfg.MaxConns / 2)
	database.SetConnMaxLifetime(30 * time.Minute)
	database.SetConnMaxIdleTime(5 * time.Minute)

	return &sqlBackend{
		driver: driver,
		db:     database,
		repo:   repository.NewSQLMessageRepository(database),
	}, nil
}

func (b *sqlBackend) Driver() string { return b.driver }

func (b *sqlBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *sqlBackend) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements[b.driver] {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqlBackend) Messages() repository.MessageRepository { return b.repo }

func (b *sqlBackend) Stats() PoolStats {
	s := b.db.Stats()
	return PoolStats{
		MaxConns:   s.MaxOpenConnections,
		TotalConns: s.OpenConnections,
		InUse:      s.InUse,
		Idle:       s.Idle,
	}
}

func (b *sqlBackend) Close() {
	_ = b.db.Close()
}
