package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const defaultApplicationName = "insights-dashboard"

// PostgresPoolConfig controls the pgx connection and database/sql pool.
// The audit trail is the only writer, so the defaults are small.
type PostgresPoolConfig struct {
	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func (c PostgresPoolConfig) withDefaults() PostgresPoolConfig {
	out := c
	if out.ApplicationName == "" {
		out.ApplicationName = defaultApplicationName
	}
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = 4
	}
	if out.MaxIdleConns <= 0 || out.MaxIdleConns > out.MaxOpenConns {
		out.MaxIdleConns = out.MaxOpenConns
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// parsePostgresDSN turns dsn into a pgx config tagged with the application
// name. Parse errors never include the DSN; it contains the password.
func parsePostgresDSN(dsn string, pool PostgresPoolConfig) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.New("invalid postgres dsn")
	}
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	if _, set := cc.RuntimeParams["application_name"]; !set {
		cc.RuntimeParams["application_name"] = pool.ApplicationName
	}
	return cc, nil
}

// OpenPostgres opens a database/sql handle backed by the pgx stdlib driver
// and pings it. dsn must not be logged.
func OpenPostgres(ctx context.Context, dsn string, pool PostgresPoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	cc, err := parsePostgresDSN(dsn, pool)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cc)

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the DB and, when tables are given, checks each one
// exists, all within timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, tables ...string) error {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(checkCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	for _, t := range tables {
		var ok bool
		if err := db.QueryRowContext(checkCtx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&ok); err != nil {
			return fmt.Errorf("db table check %s: %w", t, err)
		}
		if !ok {
			return fmt.Errorf("db table %s missing", t)
		}
	}
	return nil
}
