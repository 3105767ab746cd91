// Package config resolves the treevault home directory and loads the
// CLI configuration file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration stored in config.yaml under the
// treevault home.
type Config struct {
	// Backend selects the default storage backend ("json" | "sqlite").
	Backend string `yaml:"backend"`
	// Store is the store file path; empty selects the backend's
	// default location under the treevault home.
	Store string `yaml:"store"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: "json",
		Store:   "",
	}
}

// Load reads config.yaml from path. A missing file returns Default()
// with no error; missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal into a plain map so only the keys present apply.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if v, ok := raw["backend"].(string); ok && v != "" {
		cfg.Backend = v
	}
	if v, ok := raw["store"].(string); ok {
		cfg.Store = v
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Home resolution
// ---------------------------------------------------------------------------

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// RootDir returns the treevault home directory.
// Priority: TREEVAULT_HOME env → ~/.treevault.
func RootDir() string {
	if env := os.Getenv("TREEVAULT_HOME"); env != "" {
		if p, err := normalizePath(env); err == nil {
			return p
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".treevault")
}

// ConfigPath returns the path of the CLI configuration file.
func ConfigPath() string {
	return filepath.Join(RootDir(), "config.yaml")
}

// DefaultStorePath returns the default store file for a backend name.
func DefaultStorePath(backend string) string {
	name := "root_storage.json"
	if backend == "sqlite" {
		name = "root_storage.db"
	}
	return filepath.Join(RootDir(), name)
}
