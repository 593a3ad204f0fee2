package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "hilbert.toml"

// PathEnv lists extra interface directories, separated like PATH.
const PathEnv = "HILBERT_PATH"

// Config represents a hilbert.toml project configuration file.
type Config struct {
	Library Library `toml:"library"`
	Compile Compile `toml:"compile"`

	// Dir is the directory containing the configuration file, used to
	// resolve relative paths. Empty for the default configuration.
	Dir string `toml:"-"`
}

// Library configures where compiled interfaces are looked up.
type Library struct {
	// Paths are searched in order for <locator><extension>. Relative paths
	// are relative to the directory containing hilbert.toml.
	Paths []string `toml:"paths,omitempty"`

	// Extension of compiled interface files, including the dot.
	Extension string `toml:"extension,omitempty"`
}

// Compile configures `hilbert compile`.
type Compile struct {
	// Output is the directory compiled interfaces are written to.
	Output string `toml:"output,omitempty"`
}

// Default returns the configuration used when no hilbert.toml is found:
// interfaces are read from and written to the working directory.
func Default() *Config {
	return &Config{
		Library: Library{Paths: []string{"."}, Extension: ".hbi"},
		Compile: Compile{Output: "."},
	}
}

// Load loads a hilbert.toml file from the given path.
func Load(path string) (*Config, error) {
	config := Default()
	config.Library.Paths = nil
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	config.Dir = filepath.Dir(abs)
	if len(config.Library.Paths) == 0 {
		config.Library.Paths = []string{"."}
	}
	if config.Library.Extension == "" {
		config.Library.Extension = ".hbi"
	}
	if !strings.HasPrefix(config.Library.Extension, ".") {
		config.Library.Extension = "." + config.Library.Extension
	}
	return config, nil
}

// Find searches for a hilbert.toml file starting from dir and walking up to
// parent directories, stopping at a .git boundary. Returns the path to
// hilbert.toml and the parsed config, or ("", nil, nil) if not found.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// SearchPath returns the interface directories to search: the configured
// paths resolved against Dir, followed by those listed in $HILBERT_PATH.
func (c *Config) SearchPath() []string {
	var paths []string
	for _, p := range c.Library.Paths {
		paths = append(paths, c.resolve(p))
	}
	for _, p := range filepath.SplitList(os.Getenv(PathEnv)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// OutputDir returns the directory compiled interfaces are written to.
func (c *Config) OutputDir() string {
	return c.resolve(c.Compile.Output)
}

func (c *Config) resolve(p string) string {
	if p == "" {
		p = "."
	}
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
