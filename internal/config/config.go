// Package config loads the sloth runtime's INI configuration: the
// directories the module loader searches for imported .sloth files.
// Grounded on original_source/sloth/__init__.py's system_path search list
// and ConfigParser usage; gopkg.in/ini.v1 is the direct ecosystem analog of
// Python's configparser for this exact section/key shape.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/autocorr/sloth/pkg/vmerrors"
)

// Config holds the [Paths] section values consulted by the module loader.
type Config struct {
	// SlothDir is the user's sloth home directory (expanded, e.g. ~/.sloth).
	SlothDir string
	// LibDir is the library subdirectory name beneath SlothDir.
	LibDir string
	// File is the path the configuration was actually loaded from.
	File string
}

//go:embed default_config
var packagedDefaultConfigFS embed.FS

// packagedDefaultConfig is the last entry of original_source/sloth/__init__.py's
// system_path list: Path(__file__).parent/default_config, a real file
// shipped alongside the package rather than a hardcoded fallback. It is a
// var, not a function call inlined below, so tests can zero it out to
// exercise the genuinely-missing-everywhere path.
var packagedDefaultConfig = mustReadPackagedDefault()

func mustReadPackagedDefault() []byte {
	b, err := packagedDefaultConfigFS.ReadFile("default_config")
	if err != nil {
		// Only reachable if default_config is removed from the source
		// tree, which go:embed would normally catch at compile time.
		return nil
	}
	return b
}

// searchPath mirrors original_source/sloth/__init__.py's system_path list
// (minus its final packaged-default_config entry, handled separately
// below since it is embedded rather than a real filesystem lookup), in
// priority order.
func searchPath() []string {
	home, _ := os.UserHomeDir()
	paths := []string{"sloth.config"}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".sloth.config"),
			filepath.Join(home, ".sloth", "config"),
			filepath.Join(home, ".config", "sloth", "config"),
		)
	}
	return paths
}

// Load searches searchPath() in order, parsing the first file found. If
// none of the user locations exist, it falls back to the packaged
// default_config — matching original_source/sloth/__init__.py's
// system_path, whose final entry is that same packaged file. Only when
// even that packaged resource is unavailable does Load fail, returning
// vmerrors.ConfigNotFound, the Go analog of the original's
// `raise FileNotFoundError('Could not find configuration file.')`.
func Load() (*Config, error) {
	for _, p := range searchPath() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return parse(p)
	}
	if len(packagedDefaultConfig) == 0 {
		return nil, vmerrors.ConfigNotFound{}
	}
	cfg, err := parseBytes(packagedDefaultConfig)
	if err != nil {
		return nil, err
	}
	cfg.File = "(packaged default_config)"
	return cfg, nil
}

func parse(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := fromFile(f)
	if err != nil {
		return nil, err
	}
	cfg.File = path
	return cfg, nil
}

func parseBytes(b []byte) (*Config, error) {
	f, err := ini.Load(b)
	if err != nil {
		return nil, fmt.Errorf("config: parsing default: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	sec := f.Section("Paths")
	slothDir := sec.Key("sloth_dir").MustString("~/.sloth")
	libDir := sec.Key("lib_dir").MustString("lib")
	expanded, err := expandHome(slothDir)
	if err != nil {
		return nil, err
	}
	return &Config{SlothDir: expanded, LibDir: libDir}, nil
}

func expandHome(p string) (string, error) {
	if p == "~" || len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: expanding %q: %w", p, err)
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}

// LibPath returns the directory import_module should search for .sloth
// files beyond the current directory and the packaged lib/: SlothDir/LibDir.
func (c *Config) LibPath() string {
	return filepath.Join(c.SlothDir, c.LibDir)
}
