// Package migration defines the interface for bringing a freshly created
// test database to the head of a migration directory. The default
// implementation lives in the atlas package; custom engines can be plugged
// in with config.WithMigrator.
package migration

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

// Migrator applies schema migrations.
type Migrator interface {
	// Apply brings the database behind db to the latest version defined by
	// the migration directory dir. db is a single session to the new test
	// database. Implementations should log through logger and return an
	// error if any migration fails.
	Apply(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) error
}

// NoOpMigrator is a Migrator that performs no operations, leaving the test
// database empty. The migration directory is ignored.
type NoOpMigrator struct{}

// Apply implements Migrator.
func (m *NoOpMigrator) Apply(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) error {
	logger.Debug("Migration skipped (NoOpMigrator).")
	return nil
}

// Func adapts an ordinary function to the Migrator interface.
type Func func(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) error

// Apply implements Migrator.
func (f Func) Apply(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) error {
	return f(ctx, db, dir, logger)
}
