package testdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/veiloq/testdb/atlas"
	"github.com/veiloq/testdb/config"
	"github.com/veiloq/testdb/connection"
	"github.com/veiloq/testdb/db"
	"github.com/veiloq/testdb/internal/bridge"
	"github.com/veiloq/testdb/internal/cleanup"
	"github.com/veiloq/testdb/internal/logger"
)

// TestDB is a migrated database that exists from the moment Open or New
// returns until Close.
type TestDB struct {
	serverURL string
	name      string
	url       string
	settings  *config.Settings
	logger    *zap.Logger
	cleanup   *cleanup.Manager
}

// New creates a test database for t on the server at serverURL and applies
// the migrations in migrationPath. Any failure is fatal to t. The database
// is dropped when t and its subtests complete; a failed drop is reported
// with t.Errorf.
func New(t testing.TB, serverURL, migrationPath string, opts ...config.Option) *TestDB {
	t.Helper()

	tdb, err := open(context.Background(), t, serverURL, migrationPath, opts...)
	if err != nil {
		t.Fatalf("testdb: %v", err)
		return nil
	}

	t.Cleanup(func() {
		if err := tdb.Close(); err != nil {
			t.Errorf("testdb: failed to remove %s: %v", tdb.name, err)
		}
	})
	return tdb
}

// Open creates a test database on the server at serverURL and applies the
// migrations in migrationPath. The caller must call Close.
//
// If creation succeeds but a later step fails, the database is dropped
// before Open returns. A failure of that drop is logged and the original
// error is returned; the database may then be left on the server.
func Open(ctx context.Context, serverURL, migrationPath string, opts ...config.Option) (*TestDB, error) {
	return open(ctx, nil, serverURL, migrationPath, opts...)
}

func open(ctx context.Context, t testing.TB, serverURL, migrationPath string, opts ...config.Option) (*TestDB, error) {
	settings := config.ApplyOptions(opts...)
	if settings.Migrator() == nil {
		settings.SetMigrator(atlas.NewMigrator())
	}

	log, err := logger.InitLogger(t, settings)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}

	normalized, err := connection.NormalizeServerURL(serverURL)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}

	name, err := db.GenerateName()
	if err != nil {
		return nil, err
	}

	tdb := &TestDB{
		serverURL: normalized,
		name:      name,
		url:       connection.DatabaseURL(normalized, name),
		settings:  settings,
		logger:    log.With(zap.String("database", name)),
	}
	tdb.cleanup = cleanup.NewManager(tdb.logger)

	err = bridge.Run(ctx, "create "+name, tdb.logger, func(ctx context.Context) error {
		return tdb.create(ctx, migrationPath)
	})
	if err != nil {
		if cleanupErr := tdb.cleanup.Execute(); cleanupErr != nil {
			tdb.logger.Error("Error during cleanup after setup failure", zap.Error(cleanupErr))
		}
		return nil, err
	}

	tdb.logger.Info("Test database ready", zap.String("url", connection.Redact(tdb.url)))
	return tdb, nil
}

// create runs on the bridge: CREATE DATABASE on the server, then the
// migrations on a new session to the test database.
func (tdb *TestDB) create(ctx context.Context, migrationPath string) error {
	if err := db.CreateDatabase(ctx, tdb.serverURL, tdb.name, tdb.logger); err != nil {
		return err
	}
	tdb.cleanup.Add("drop database", db.DropDatabaseFunc(tdb.serverURL, tdb.name, tdb.settings.KeepDatabase(), tdb.logger))

	if hook := tdb.settings.BeforeMigrationHook(); hook != nil {
		tdb.logger.Debug("Running beforeMigrationHook...")
		if err := hook(ctx, tdb.url, tdb.logger); err != nil {
			return ErrMigrate.New("Failed to migrate: beforeMigrationHook: %w", err)
		}
	}

	session, err := connection.OpenSession(ctx, tdb.url, tdb.logger)
	if err != nil {
		return ErrConnect.Wrap(err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			tdb.logger.Warn("Error closing migration session", zap.Error(err))
		}
	}()

	tdb.logger.Debug("Applying migrations", zap.String("dir", migrationPath))
	if err := tdb.settings.Migrator().Apply(ctx, session, migrationPath, tdb.logger); err != nil {
		return ErrMigrate.New("Failed to migrate %s from %q: %w", tdb.name, migrationPath, err)
	}
	return nil
}

// URL returns the URL of the test database.
func (tdb *TestDB) URL() string {
	return tdb.url
}

// ServerURL returns the normalized URL of the server hosting the database.
func (tdb *TestDB) ServerURL() string {
	return tdb.serverURL
}

// Name returns the database name.
func (tdb *TestDB) Name() string {
	return tdb.name
}

// Pool opens a new pgx connection pool to the test database with the
// driver's default settings, adjusted by config.WithPoolConfig if given.
// The pool is pinged before it is returned. The caller must close it;
// pools still open at Close are disconnected by the server.
func (tdb *TestDB) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := connection.OpenPool(ctx, tdb.url, tdb.settings.PoolConfig(), tdb.logger)
	if err != nil {
		return nil, ErrConnect.Wrap(err)
	}
	return pool, nil
}

// SQLDB opens a new database/sql handle (pgx driver) to the test database
// and pings it. The caller must close it.
func (tdb *TestDB) SQLDB(ctx context.Context) (*sql.DB, error) {
	sqlDB, err := connection.OpenSQLDB(ctx, tdb.url, tdb.logger)
	if err != nil {
		return nil, ErrConnect.Wrap(err)
	}
	return sqlDB, nil
}

// Close terminates every session attached to the test database and drops
// it. It is safe to call from any goroutine and more than once; only the
// first call does any work.
func (tdb *TestDB) Close() error {
	return tdb.cleanup.Execute()
}
