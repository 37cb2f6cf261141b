package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// TOMLConfigName is the TOML config file looked up in the project root.
const TOMLConfigName = "fastpack.toml"

// KDLConfigName is the KDL config file looked up in the project root.
const KDLConfigName = ".fastpack.kdl"

// Load reads options from the project's config file. KDL wins over TOML
// when both exist; a missing file yields zero options, not an error, so
// a pure-CLI invocation works without any config on disk.
func Load(projectRoot string) (Options, error) {
	if kdlOpts, err := LoadKDL(projectRoot); err != nil {
		return Options{}, err
	} else if kdlOpts != nil {
		return *kdlOpts, nil
	}

	tomlPath := filepath.Join(projectRoot, TOMLConfigName)
	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return Options{}, nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("failed to read %s: %w", tomlPath, err)
	}

	var opts Options
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
	}
	if opts.Cwd == "" {
		opts.Cwd = projectRoot
	}
	return opts, nil
}
