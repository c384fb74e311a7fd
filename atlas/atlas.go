// Package atlas applies a directory of SQL migrations to a test database
// with the Atlas migration engine.
package atlas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/postgres"
	"go.uber.org/zap"

	"github.com/veiloq/testdb/migration"
)

// DownSuffix marks rollback files in reversible migration layouts. They are
// never applied.
const DownSuffix = ".down.sql"

var _ migration.Migrator = (*Migrator)(nil)

// Migrator applies every .sql file of a directory, in lexical order, to a
// fresh database. Revisions are not recorded: every test database starts
// empty, so every file is pending.
type Migrator struct {
	timeout time.Duration
}

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithTimeout bounds a single Apply. Zero means no bound.
func WithTimeout(d time.Duration) MigratorOption {
	return func(m *Migrator) { m.timeout = d }
}

// NewMigrator creates a Migrator.
func NewMigrator(opts ...MigratorOption) *Migrator {
	m := &Migrator{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadFiles reads the migration files of dir, sorted by name, leaving out
// rollback (*.down.sql) files. It fails if dir cannot be read.
func LoadFiles(dir string) ([]migrate.File, error) {
	local, err := migrate.NewLocalDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration dir %q: %w", dir, err)
	}
	all, err := local.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to read migration dir %q: %w", dir, err)
	}
	files := make([]migrate.File, 0, len(all))
	for _, f := range all {
		if strings.HasSuffix(f.Name(), DownSuffix) {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// Apply implements migration.Migrator.
func (m *Migrator) Apply(ctx context.Context, db *sql.DB, dir string, logger *zap.Logger) error {
	logger = logger.With(zap.String("migrator", "atlas"), zap.String("source_dir", dir))

	files, err := LoadFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("No migration files found.")
		return nil
	}

	// The executor validates the directory against atlas.sum; an in-memory
	// copy carries a sum computed from the files being applied.
	mem := &migrate.MemDir{}
	if err := mem.CopyFiles(files); err != nil {
		return fmt.Errorf("failed to stage migration files: %w", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	drv, err := postgres.Open(db)
	if err != nil {
		return fmt.Errorf("failed to open atlas postgres driver: %w", err)
	}

	exec, err := migrate.NewExecutor(drv, mem, migrate.NopRevisionReadWriter{},
		migrate.WithLogger(&zapMigrateLogger{logger: logger}),
		migrate.WithAllowDirty(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create atlas executor: %w", err)
	}

	logger.Info("Applying migrations", zap.Int("files", len(files)))
	if err := exec.ExecuteN(ctx, 0); err != nil {
		if errors.Is(err, migrate.ErrNoPendingFiles) {
			logger.Info("No pending migrations to apply.")
			return nil
		}
		return err
	}

	logger.Info("Successfully applied migrations")
	return nil
}

// zapMigrateLogger adapts a *zap.Logger to the migrate.Logger interface.
type zapMigrateLogger struct {
	logger *zap.Logger
}

// Log implements migrate.Logger.
func (l *zapMigrateLogger) Log(entry migrate.LogEntry) {
	switch e := entry.(type) {
	case migrate.LogExecution:
		l.logger.Debug("Migration execution starting",
			zap.String("from_version", e.From),
			zap.String("to_version", e.To),
			zap.Int("num_files", len(e.Files)),
		)
	case migrate.LogFile:
		l.logger.Debug("Applying migration file", zap.String("file", e.File.Name()))
	case migrate.LogStmt:
		l.logger.Debug("Executing statement", zap.String("sql", e.SQL))
	case migrate.LogError:
		l.logger.Error("Migration error", zap.String("sql", e.SQL), zap.Error(e.Error))
	case migrate.LogDone:
		l.logger.Debug("Migration execution finished")
	default:
		l.logger.Debug("Unhandled migration log entry", zap.Any("entry", entry))
	}
}
