package atlas

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultEnv is the atlas.hcl env block looked up when none is named.
const DefaultEnv = "local"

// atlasConfigHCL holds the parts of atlas.hcl needed to locate migrations.
type atlasConfigHCL struct {
	Envs   []*atlasEnvHCL `hcl:"env,block"`
	Remain hcl.Body       `hcl:",remain"`
}

type atlasEnvHCL struct {
	Name      string             `hcl:"name,label"`
	Migration *atlasMigrationHCL `hcl:"migration,block"`
	Remain    hcl.Body           `hcl:",remain"`
}

type atlasMigrationHCL struct {
	Dir    string   `hcl:"dir"`
	Remain hcl.Body `hcl:",remain"`
}

// DirFromHCL reads an atlas.hcl project file and returns the migration
// directory of env, resolved relative to the file. An empty env looks up
// DefaultEnv and falls back to the first env block that declares a
// migration directory.
func DirFromHCL(hclPath, env string) (string, error) {
	absHCLPath, err := filepath.Abs(hclPath)
	if err != nil {
		return "", fmt.Errorf("failed to determine absolute path for atlas HCL file %q: %w", hclPath, err)
	}

	var conf atlasConfigHCL
	if err := hclsimple.DecodeFile(absHCLPath, nil, &conf); err != nil {
		return "", fmt.Errorf("failed to decode atlas HCL file %q: %w", absHCLPath, err)
	}

	dir, err := findMigrationDir(&conf, env)
	if err != nil {
		return "", fmt.Errorf("atlas HCL file %q: %w", absHCLPath, err)
	}

	dir = strings.TrimPrefix(dir, "file://")
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	return filepath.Join(filepath.Dir(absHCLPath), dir), nil
}

func findMigrationDir(conf *atlasConfigHCL, env string) (string, error) {
	lookup := env
	if lookup == "" {
		lookup = DefaultEnv
	}
	for _, e := range conf.Envs {
		if e.Name == lookup && e.Migration != nil && e.Migration.Dir != "" {
			return e.Migration.Dir, nil
		}
	}
	if env != "" {
		return "", fmt.Errorf("env %q has no migration dir", env)
	}
	for _, e := range conf.Envs {
		if e.Migration != nil && e.Migration.Dir != "" {
			return e.Migration.Dir, nil
		}
	}
	return "", errors.New("no env declares a migration dir")
}
