// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the database, retrying with exponential backoff until it
// answers a ping or maxElapsed passes, then creates the schema.
func Open(ctx context.Context, dbType, url string, maxElapsed time.Duration) (*Store, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DialectSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxElapsed

	err = backoff.RetryNotify(func() error {
		return conn.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		slog.Warn("database ping failed, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if driver == DialectSQLite {
		if err := configureSQLite(ctx, conn, url); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if err := CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return NewStore(conn, driver), nil
}

func driverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "", DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	case DialectPostgres, "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}
}

func configureSQLite(ctx context.Context, conn *sql.DB, url string) error {
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !strings.Contains(url, ":memory:") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("configure sqlite: %w", err)
		}
	}
	return nil
}
