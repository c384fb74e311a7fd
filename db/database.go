// Package db implements the server-side lifecycle of test databases:
// name generation, CREATE DATABASE, and eviction plus DROP DATABASE. It
// also manages an embedded server for environments without one.
package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/veiloq/testdb/connection"
	"github.com/veiloq/testdb/internal/bridge"
	"github.com/veiloq/testdb/internal/cleanup"
)

// NamePrefix starts every generated test database name.
const NamePrefix = "testdb_"

// NamePattern matches generated test database names.
var NamePattern = regexp.MustCompile(`^testdb_[0-9a-fA-F-]{36}$`)

// GenerateName returns "testdb_" followed by a random (version 4) UUID.
func GenerateName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid for database name: %w", err)
	}
	return NamePrefix + id.String(), nil
}

// CreateSQL returns the statement creating database name.
func CreateSQL(name string) string {
	return "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
}

// TerminateSQL returns the statement terminating every backend attached to
// database name, except the one running it.
func TerminateSQL(name string) string {
	return "SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE pid <> pg_backend_pid() AND datname = " + pq.QuoteLiteral(name)
}

// DropSQL returns the statement dropping database name.
func DropSQL(name string) string {
	return "DROP DATABASE " + pgx.Identifier{name}.Sanitize()
}

// CreateDatabase opens a session to the server (serverURL carries no
// database component) and creates database name on it. The session is
// closed before returning.
func CreateDatabase(ctx context.Context, serverURL, name string, logger *zap.Logger) error {
	conn, err := connection.Connect(ctx, serverURL, logger)
	if err != nil {
		return ErrConnect.Wrap(err)
	}
	defer closeConn(ctx, conn, logger)

	logger.Debug("Creating test database", zap.String("database", name))
	if _, err := conn.Exec(ctx, CreateSQL(name)); err != nil {
		return ErrCreate.New("Failed to create database %s: %w", name, err)
	}

	logger.Info("Created test database", zap.String("database", name))
	return nil
}

// DropDatabase opens a session to the server, terminates every other
// session attached to database name, and drops it. Nothing is retried.
func DropDatabase(ctx context.Context, serverURL, name string, logger *zap.Logger) error {
	conn, err := connection.Connect(ctx, serverURL, logger)
	if err != nil {
		return ErrConnect.Wrap(err)
	}
	defer closeConn(ctx, conn, logger)

	tag, err := conn.Exec(ctx, TerminateSQL(name))
	if err != nil {
		return ErrTerminate.New("Terminate all other connections to %s: %w", name, err)
	}
	logger.Debug("Terminated other sessions", zap.String("database", name), zap.Int64("sessions", tag.RowsAffected()))

	if _, err := conn.Exec(ctx, DropSQL(name)); err != nil {
		return ErrDrop.New("Error while querying the drop database %s: %w", name, err)
	}

	logger.Info("Dropped test database", zap.String("database", name))
	return nil
}

// DropDatabaseFunc returns a cleanup step that drops database name through
// the lifecycle bridge. With keepDatabase set the step only logs that the
// database was kept.
func DropDatabaseFunc(serverURL, name string, keepDatabase bool, logger *zap.Logger) cleanup.Func {
	return func() error {
		if keepDatabase {
			logger.Info("Keeping test database; drop it manually", zap.String("database", name), zap.String("server", connection.Redact(serverURL)))
			return nil
		}
		return bridge.Run(context.Background(), "drop "+name, logger, func(ctx context.Context) error {
			return DropDatabase(ctx, serverURL, name, logger)
		})
	}
}

func closeConn(ctx context.Context, conn *pgx.Conn, logger *zap.Logger) {
	if err := conn.Close(ctx); err != nil {
		logger.Warn("Error closing session", zap.Error(err))
	}
}
