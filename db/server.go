package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veiloq/testdb/config"
	"github.com/veiloq/testdb/connection"
)

// Server is an embedded PostgreSQL server started for tests. Its URL can be
// handed to testdb.New as the server URL.
type Server struct {
	mu         sync.Mutex
	embedded   *embeddedpostgres.EmbeddedPostgres
	config     config.Config
	runtimeDir string
	logger     *zap.Logger
}

// AssignRandomPort replaces a zero Port in cfg with a free TCP port on
// cfg.Host.
func AssignRandomPort(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Port != 0 {
		return nil
	}
	port, err := connection.GetFreePort(cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to get free port: %w", err)
	}
	cfg.Port = port
	logger.Info("Assigned random free port", zap.Uint32("port", cfg.Port))
	return nil
}

// StartServer starts an embedded PostgreSQL server described by cfg in a
// fresh runtime directory under cfg.RuntimeBasePath.
func StartServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start embedded postgres: %w", err)
	}
	if err := AssignRandomPort(&cfg, logger); err != nil {
		return nil, err
	}

	base := cfg.RuntimeBasePath
	if base == "" {
		base = config.DefaultConfig().RuntimeBasePath
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create base runtime directory %q: %w", base, err)
	}
	runtimeDir, err := filepath.Abs(filepath.Join(base, "runtime_"+uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve runtime directory: %w", err)
	}

	output := cfg.Logger
	if output == nil {
		output = io.Discard
	}

	// Sessions opened without a database component land in the database
	// named after the user, so make sure it exists.
	epConfig := embeddedpostgres.DefaultConfig().
		Version(cfg.Version).
		Port(cfg.Port).
		Database(cfg.Username).
		Username(cfg.Username).
		Password(cfg.Password).
		RuntimePath(runtimeDir).
		BinariesPath(cfg.BinariesPath).
		StartTimeout(cfg.StartTimeout).
		Logger(output)

	embedded := embeddedpostgres.NewDatabase(epConfig)
	logger.Info("Starting embedded postgres server", zap.Uint32("port", cfg.Port), zap.String("version", string(cfg.Version)), zap.String("runtime_dir", runtimeDir))
	if err := embedded.Start(); err != nil {
		_ = os.RemoveAll(runtimeDir)
		return nil, fmt.Errorf("failed to start embedded postgres: %w", err)
	}
	logger.Info("Embedded postgres server started", zap.String("url", connection.Redact(cfg.ServerURL())))

	return &Server{
		embedded:   embedded,
		config:     cfg,
		runtimeDir: runtimeDir,
		logger:     logger,
	}, nil
}

// URL returns the server URL (no database component).
func (s *Server) URL() string {
	return s.config.ServerURL()
}

// Config returns the configuration the server runs with, including the
// assigned port.
func (s *Server) Config() config.Config {
	return s.config
}

// Stop stops the server and removes its runtime directory. Calling Stop on
// a stopped server does nothing.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedded == nil {
		s.logger.Debug("Embedded postgres server already stopped.")
		return nil
	}

	s.logger.Debug("Stopping embedded postgres server...")
	if err := s.embedded.Stop(); err != nil {
		s.logger.Error("Error stopping embedded postgres server", zap.Error(err))
		return fmt.Errorf("error stopping embedded postgres: %w", err)
	}
	s.embedded = nil

	if err := os.RemoveAll(s.runtimeDir); err != nil {
		s.logger.Error("Error removing runtime directory", zap.String("path", s.runtimeDir), zap.Error(err))
		return fmt.Errorf("failed to remove runtime dir %q: %w", s.runtimeDir, err)
	}
	s.logger.Debug("Embedded postgres server stopped.")
	return nil
}
