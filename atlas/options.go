package atlas

import (
	"github.com/veiloq/testdb/config"
)

// WithAtlas makes the test database apply migrations with a Migrator built
// from opts. Without any migrator option this is the default.
func WithAtlas(opts ...MigratorOption) config.Option {
	return func(s *config.Settings) {
		s.SetMigrator(NewMigrator(opts...))
	}
}
