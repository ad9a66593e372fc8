// Package config loads metav's run configuration from an optional TOML
// file and layers CLI flag overrides on top, the way the teacher's own
// config package merges a project-level TOML file with command-line
// overrides before handing a single resolved Config to the rest of the
// pipeline.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/madappgang/metav/internal/metaverr"
)

// Config is the fully resolved set of knobs the driver needs for one run.
type Config struct {
	IncludePaths []string          `toml:"include_paths"`
	ModulePaths  []string          `toml:"module_paths"`
	Defines      map[string]string `toml:"defines"`
	NoWrite      bool              `toml:"no_write"`
	Diagnostics  DiagnosticsConfig `toml:"diagnostics"`
}

// DiagnosticsConfig controls how rendered errors look on the terminal.
type DiagnosticsConfig struct {
	Style        string `toml:"style"` // "plain" or "color"
	ContextLines int    `toml:"context_lines"`
}

// Default returns the configuration used when no TOML file is given.
func Default() Config {
	return Config{
		IncludePaths: []string{"."},
		ModulePaths:  []string{"."},
		Defines:      map[string]string{},
		Diagnostics: DiagnosticsConfig{
			Style:        "color",
			ContextLines: 2,
		},
	}
}

// Load reads path (if non-empty) as a TOML document and merges it over
// Default(); an empty path simply returns the default config, while a
// file that cannot be read or decoded is an IOError.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, metaverr.Wrap(metaverr.KindIOError, nil, err, "loading config %s", path)
	}
	return cfg, nil
}

// Validate rejects a Config that cannot possibly resolve topModule: an
// empty ModulePaths means the driver's file search falls back to treating
// topModule as a bare relative filename stem, so this fails fast with the
// same ModuleNotFound category the driver itself would eventually raise,
// rather than letting the run fail deep inside the pipeline.
func (c Config) Validate(topModule string) error {
	if len(c.ModulePaths) > 0 {
		return nil
	}
	if strings.HasSuffix(topModule, ".v") {
		return nil
	}
	if info, err := os.Stat(topModule + ".v"); err == nil && !info.IsDir() {
		return nil
	}
	return metaverr.New(metaverr.KindModuleNotFound, nil,
		"module_paths is empty and %s.v does not exist in the working directory", topModule)
}

// Overlay applies CLI-flag values on top of cfg; empty slices/maps/strings
// leave the existing value untouched, matching the teacher's
// flags-override-file precedence.
type Overlay struct {
	IncludePaths []string
	ModulePaths  []string
	Defines      map[string]string
	NoWrite      *bool
}

// Apply merges o onto cfg and returns the result.
func (o Overlay) Apply(cfg Config) Config {
	if len(o.IncludePaths) > 0 {
		cfg.IncludePaths = append(append([]string{}, cfg.IncludePaths...), o.IncludePaths...)
	}
	if len(o.ModulePaths) > 0 {
		cfg.ModulePaths = append(append([]string{}, cfg.ModulePaths...), o.ModulePaths...)
	}
	for k, v := range o.Defines {
		if cfg.Defines == nil {
			cfg.Defines = map[string]string{}
		}
		cfg.Defines[k] = v
	}
	if o.NoWrite != nil {
		cfg.NoWrite = *o.NoWrite
	}
	return cfg
}
