package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/veiloq/testdb/config"
	"github.com/veiloq/testdb/db"
)

func TestStartServer_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Username = ""
	cfg.RuntimeBasePath = t.TempDir()

	srv, err := db.StartServer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "Username must not be empty")
}

func TestStartServer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.DefaultConfig()
	cfg.RuntimeBasePath = t.TempDir()

	srv, err := db.StartServer(ctx, cfg, zaptest.NewLogger(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, srv)
}
