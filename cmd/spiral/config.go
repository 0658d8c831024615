package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileName is looked up in the repository root when --config is not
// given.
const configFileName = "spiral.yaml"

// Config is the parsed contents of spiral.yaml. Flags given on the command
// line override it.
type Config struct {
	Path string `yaml:"-"`

	// Module names the module of every analysed file. Empty means each
	// file is its own module, named after the file.
	Module string `yaml:"module"`
	// DB is the index path, relative to the directory holding the file.
	DB string `yaml:"db"`
	// Rules is a scripts directory, relative to the directory holding the
	// file, loaded instead of the built-in rules.
	Rules    string `yaml:"rules"`
	Parallel *bool  `yaml:"parallel"`
	Format   string `yaml:"format"`
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	cfg := &Config{}
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file is a valid, empty config.
			cfg.Path = absPath
			return cfg, nil
		}
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}
	cfg.Path = absPath
	if cfg.Format != "" {
		if err := validateFormat(cfg.Format); err != nil {
			return nil, fmt.Errorf("config: %s: %w", absPath, err)
		}
	}
	return cfg, nil
}

// findConfig returns the path of spiral.yaml in dir, or "" when there is
// none.
func findConfig(dir string) string {
	path := filepath.Join(dir, configFileName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// resolve makes a path from the config file relative to its directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}
