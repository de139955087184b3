package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"brokerhub/internal/platform/config"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ParseURL picks the driver for a database URL. postgres:// and
// postgresql:// go to lib/pq; everything else is treated as a sqlite DSN.
func ParseURL(url string) (driver, dsn string) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres, url
	}

	dsn = strings.TrimPrefix(url, "sqlite://")
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if !strings.Contains(dsn, "_foreign_keys") {
		if strings.Contains(dsn, "?") {
			dsn += "&_foreign_keys=on"
		} else {
			dsn += "?_foreign_keys=on"
		}
	}
	return DriverSQLite, dsn
}

func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	driver, dsn := ParseURL(cfg.URL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := ping(db, cfg); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("database connected")
	return db, nil
}

// ping retries with exponential backoff so the server can start before
// the database container is ready.
func ping(db *sql.DB, cfg config.DatabaseConfig) error {
	bo := backoff.NewExponentialBackOff()
	if cfg.RetryInitialInterval > 0 {
		bo.InitialInterval = cfg.RetryInitialInterval
	}
	if cfg.RetryMaxInterval > 0 {
		bo.MaxInterval = cfg.RetryMaxInterval
	}
	bo.MaxElapsedTime = cfg.ConnectTimeout

	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}, bo, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("database not reachable, retrying")
	})
}
