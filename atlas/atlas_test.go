package atlas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/veiloq/testdb/atlas"
	"github.com/veiloq/testdb/config"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadFiles_SortsAndSkipsRollbacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2_add_y.up.sql", "ALTER TABLE t ADD COLUMN y int;")
	writeFile(t, dir, "2_add_y.down.sql", "ALTER TABLE t DROP COLUMN y;")
	writeFile(t, dir, "1_create_t.up.sql", "CREATE TABLE t (x int);")
	writeFile(t, dir, "1_create_t.down.sql", "DROP TABLE t;")
	writeFile(t, dir, "README.md", "not a migration")

	files, err := atlas.LoadFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"1_create_t.up.sql", "2_add_y.up.sql"}, names)
}

func TestLoadFiles_EmptyDir(t *testing.T) {
	files, err := atlas.LoadFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLoadFiles_MissingDir(t *testing.T) {
	_, err := atlas.LoadFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestLoadFiles_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.sql", "SELECT 1;")

	_, err := atlas.LoadFiles(filepath.Join(dir, "file.sql"))
	require.Error(t, err)
}

func TestMigrator_EmptyDirNeedsNoDatabase(t *testing.T) {
	// Nothing to apply: the session is never touched.
	m := atlas.NewMigrator()
	require.NoError(t, m.Apply(context.Background(), nil, t.TempDir(), zaptest.NewLogger(t)))
}

func TestMigrator_MissingDirFails(t *testing.T) {
	m := atlas.NewMigrator()
	err := m.Apply(context.Background(), nil, filepath.Join(t.TempDir(), "nope"), zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestWithAtlas(t *testing.T) {
	settings := config.ApplyOptions(atlas.WithAtlas())
	_, ok := settings.Migrator().(*atlas.Migrator)
	assert.True(t, ok, "WithAtlas should install an atlas Migrator, got %T", settings.Migrator())
}

func TestDirFromHCL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "atlas.hcl", `
variable "url" {
  type    = string
  default = "postgres://localhost:5432"
}

env "ci" {
  url = var.url
  migration {
    dir = "file://ci_migrations"
  }
}

env "local" {
  src = "file://schema.sql"
  migration {
    dir    = "file://migrations"
    format = atlas
  }
}
`)
	hclPath := filepath.Join(dir, "atlas.hcl")

	got, err := atlas.DirFromHCL(hclPath, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migrations"), got)

	got, err = atlas.DirFromHCL(hclPath, "ci")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ci_migrations"), got)

	_, err = atlas.DirFromHCL(hclPath, "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `env "prod"`)
}

func TestDirFromHCL_FallsBackToFirstEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "atlas.hcl", `
env "dev" {
}

env "test" {
  migration {
    dir = "db/migrations"
  }
}
`)

	got, err := atlas.DirFromHCL(filepath.Join(dir, "atlas.hcl"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "db", "migrations"), got)
}

func TestDirFromHCL_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := atlas.DirFromHCL(filepath.Join(dir, "missing.hcl"), "")
	require.Error(t, err)

	writeFile(t, dir, "atlas.hcl", `env "local" {}`)
	_, err = atlas.DirFromHCL(filepath.Join(dir, "atlas.hcl"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no env declares a migration dir")
}
