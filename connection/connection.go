// Package connection handles server URLs and the sessions and pools opened
// against the server and against test databases.
package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// NormalizeServerURL validates a server URL and returns it in the form test
// database URLs are composed from: no database path and no trailing slash.
//
// A single trailing "/" is stripped. A URL naming a database
// ("postgres://host:5432/postgres") is rejected, since the database
// component belongs to the test database. Fragments and opaque URLs are
// rejected. Query parameters are kept.
func NormalizeServerURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("server URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("server URL %s: unsupported scheme %q (want postgres or postgresql)", u.Redacted(), u.Scheme)
	}
	if u.Opaque != "" {
		return "", fmt.Errorf("server URL %s: opaque URLs are not supported", u.Redacted())
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %s: missing host", u.Redacted())
	}
	if strings.Contains(raw, "#") {
		return "", fmt.Errorf("server URL %s must not contain a fragment", u.Redacted())
	}
	if u.Path != "" && u.Path != "/" {
		return "", fmt.Errorf("server URL %s must not contain a database path (%q)", u.Redacted(), u.Path)
	}

	base, query, hasQuery := strings.Cut(raw, "?")
	base = strings.TrimSuffix(base, "/")
	if hasQuery {
		return base + "?" + query, nil
	}
	return base, nil
}

// DatabaseURL composes the URL of database dbName on the server by setting
// dbName as the path of the parsed serverURL, which must be normalized.
// Query parameters are kept; for a plain URL the result is
// serverURL + "/" + dbName.
func DatabaseURL(serverURL, dbName string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		base, query, hasQuery := strings.Cut(serverURL, "?")
		if hasQuery {
			return base + "/" + dbName + "?" + query
		}
		return base + "/" + dbName
	}
	u.Path = "/" + dbName
	u.RawPath = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Redact returns rawURL with any password masked, for logging.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparsable url>"
	}
	return u.Redacted()
}

// Connect opens a single pgx session.
func Connect(ctx context.Context, rawURL string, logger *zap.Logger) (*pgx.Conn, error) {
	logger.Debug("Opening session", zap.String("url", Redact(rawURL)))
	conn, err := pgx.Connect(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", Redact(rawURL), err)
	}
	return conn, nil
}

// OpenSession opens a database/sql handle restricted to a single session,
// for engines that need database/sql (migrations). The session is pinged
// before returning.
func OpenSession(ctx context.Context, rawURL string, logger *zap.Logger) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Redact(rawURL), err)
	}
	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger.Debug("Opening database/sql session", zap.String("url", Redact(rawURL)))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", Redact(rawURL), err)
	}
	return db, nil
}

// OpenSQLDB opens a database/sql pool (pgx stdlib driver) with default
// settings and pings it.
func OpenSQLDB(ctx context.Context, rawURL string, logger *zap.Logger) (*sql.DB, error) {
	logger.Debug("Opening sql.DB", zap.String("url", Redact(rawURL)))
	db, err := sql.Open("pgx", rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql.DB for %s: %w", Redact(rawURL), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s (sql.DB): %w", Redact(rawURL), err)
	}
	return db, nil
}

// OpenPool creates a pgx connection pool with the driver's default settings,
// optionally adjusted by mutate, and pings it.
func OpenPool(ctx context.Context, rawURL string, mutate func(*pgxpool.Config), logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s for pgx pool: %w", Redact(rawURL), err)
	}
	if mutate != nil {
		mutate(poolConfig)
	}

	logger.Debug("Creating pgx connection pool", zap.String("url", Redact(rawURL)))
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping pgx pool for %s: %w", Redact(rawURL), err)
	}
	return pool, nil
}
