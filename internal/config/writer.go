package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wayfind/intent-engine/internal/project"
)

// configFileName is the optional per-project settings file inside the
// .intent-engine directory.
const configFileName = "config.yaml"

// FileConfig holds the per-project defaults a user may persist.
type FileConfig struct {
	// Format is the default output format: "human" or "json".
	Format string `yaml:"format,omitempty"`

	// IncludeEvents is the default event count for status snapshots.
	IncludeEvents int `yaml:"include_events,omitempty"`
}

// LoadFileConfig reads the project config file. A missing file yields
// the zero config.
func LoadFileConfig(root string) (*FileConfig, error) {
	path := filepath.Join(root, project.DotDir, configFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// WriteFileConfig persists the project config atomically.
func WriteFileConfig(root string, cfg *FileConfig) error {
	dir := filepath.Join(root, project.DotDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, configFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
