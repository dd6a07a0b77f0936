package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/infrastructure/config"
)

// NewConnection opens the configured database behind sqlx. Postgres goes
// through the pgx stdlib driver so SQL tracing can use pgx's tracelog.
func NewConnection(cfg *config.Config, logger logrus.FieldLogger) (*sqlx.DB, func(), error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database driver: %w", err)
	}
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database dsn: %w", err)
	}

	switch driver {
	case config.DriverPostgres:
		return newPostgres(cfg, dsn, logger)
	case config.DriverSQLite:
		return newSQLite(dsn)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func newPostgres(cfg *config.Config, dsn string, logger logrus.FieldLogger) (*sqlx.DB, func(), error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.Database.LogSQL && logger != nil {
		connCfg.Tracer = &tracelog.TraceLog{
			Logger:   TraceLogger(logger),
			LogLevel: tracelog.LogLevelTrace,
		}
	}

	rawDB := stdlib.OpenDB(*connCfg)
	if cfg.Database.MaxConns > 0 {
		rawDB.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	if err := ping(rawDB); err != nil {
		rawDB.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := sqlx.NewDb(rawDB, "pgx")
	return db, func() { _ = db.Close() }, nil
}

func newSQLite(dsn string) (*sqlx.DB, func(), error) {
	db, err := sqlx.Open(config.DriverSQLite, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(db.DB); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// TraceLogger adapts pgx trace output onto logrus.
func TraceLogger(logger logrus.FieldLogger) tracelog.Logger {
	return tracelog.LoggerFunc(func(_ context.Context, lvl tracelog.LogLevel, msg string, data map[string]any) {
		entry := logger.WithFields(logrus.Fields(data)).WithField("component", "pgx")
		switch lvl {
		case tracelog.LogLevelError:
			entry.Error(msg)
		case tracelog.LogLevelWarn:
			entry.Warn(msg)
		case tracelog.LogLevelInfo:
			entry.Info(msg)
		default:
			entry.Debug(msg)
		}
	})
}
