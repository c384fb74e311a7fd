package testdb

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handle is the surface of a live test database.
type Handle interface {
	// URL returns the URL of the test database: the server URL with the
	// database name as its path.
	URL() string
	// ServerURL returns the URL of the server the database lives on.
	ServerURL() string
	// Name returns the generated database name.
	Name() string
	// Pool opens a new pgx connection pool to the test database. The
	// caller owns the pool and must close it.
	Pool(ctx context.Context) (*pgxpool.Pool, error)
	// SQLDB opens a new database/sql handle to the test database. The
	// caller owns the handle and must close it.
	SQLDB(ctx context.Context) (*sql.DB, error)
	// Close drops the test database. It runs once; later calls return the
	// first result.
	Close() error
}

var _ Handle = (*TestDB)(nil)
