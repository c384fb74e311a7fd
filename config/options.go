package config

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veiloq/testdb/migration"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings holds the configuration applied via functional options.
type Settings struct {
	logger              *zap.Logger           // Explicit logger; overrides zaptest / development logger selection
	zapOptions          []zap.Option          // Options for zap logger creation (e.g., zap.AddCaller())
	zapTestLevel        *zap.AtomicLevel      // Level for the zaptest logger
	migrator            migration.Migrator    // nil means the default Atlas directory migrator
	keepDatabase        bool                  // Skip DROP DATABASE on close
	poolConfig          func(*pgxpool.Config) // Mutates pool configs before pools are created
	beforeMigrationHook func(ctx context.Context, url string, logger *zap.Logger) error
}

// --- Getters ---

func (s *Settings) Logger() *zap.Logger {
	return s.logger
}

func (s *Settings) ZapOptions() []zap.Option {
	return s.zapOptions
}

func (s *Settings) ZapTestLevel() *zap.AtomicLevel {
	return s.zapTestLevel
}

func (s *Settings) Migrator() migration.Migrator {
	return s.migrator
}

func (s *Settings) KeepDatabase() bool {
	return s.keepDatabase
}

func (s *Settings) PoolConfig() func(*pgxpool.Config) {
	return s.poolConfig
}

func (s *Settings) BeforeMigrationHook() func(ctx context.Context, url string, logger *zap.Logger) error {
	return s.beforeMigrationHook
}

// --- Setters ---

func (s *Settings) SetMigrator(m migration.Migrator) {
	s.migrator = m
}

// Option configures a test database.
type Option func(*Settings)

// WithLogger makes the test database log to logger instead of a logger
// derived from the test.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Settings) { s.logger = logger }
}

// WithZapOptions provides additional options for the zap logger.
func WithZapOptions(zapOpts ...zap.Option) Option {
	return func(s *Settings) { s.zapOptions = append(s.zapOptions, zapOpts...) }
}

// WithZapTestLevel sets the minimum log level of the zaptest logger.
func WithZapTestLevel(level zapcore.Level) Option {
	return func(s *Settings) {
		atomicLevel := zap.NewAtomicLevelAt(level)
		s.zapTestLevel = &atomicLevel
	}
}

// WithMigrator replaces the default Atlas directory migrator.
func WithMigrator(m migration.Migrator) Option {
	return func(s *Settings) { s.migrator = m }
}

// WithKeepDatabase leaves the database on the server when the test
// database is closed. Useful to inspect a failing test's data; the database
// must then be dropped by hand.
func WithKeepDatabase() Option {
	return func(s *Settings) { s.keepDatabase = true }
}

// WithPoolConfig registers a function that adjusts every pool config before
// the pool is created.
func WithPoolConfig(fn func(*pgxpool.Config)) Option {
	return func(s *Settings) { s.poolConfig = fn }
}

// WithBeforeMigrationHook registers a function to run after the database is
// created and before migrations are applied. It receives the database URL.
func WithBeforeMigrationHook(hook func(ctx context.Context, url string, logger *zap.Logger) error) Option {
	return func(s *Settings) { s.beforeMigrationHook = hook }
}

// ApplyOptions processes functional options on top of the defaults.
func ApplyOptions(opts ...Option) *Settings {
	settings := &Settings{
		zapOptions: make([]zap.Option, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}
	return settings
}
