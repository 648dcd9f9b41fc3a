// Package config handles configuration for sapwiz-runner.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EngineConfig tunes element resolution.
type EngineConfig struct {
	ScanDepth     int      `yaml:"scanDepth"`     // BFS depth bound, 0 = default
	AlignFraction float64  `yaml:"alignFraction"` // Minimum span-overlap fraction, 0 = default
	TargetTypes   []string `yaml:"targetTypes"`   // Optional default target type override
}

// OutputConfig controls where run artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// HistoryConfig controls run history recording.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogonConfig points at the SAP logon file.
type LogonConfig struct {
	Path string `yaml:"path"`
}

// Config represents the workspace configuration (sapwiz.yaml).
type Config struct {
	// Flow selection
	Flows       []string `yaml:"flows"`       // Flow files or globs
	IncludeTags []string `yaml:"includeTags"` // Run only flows with one of these
	ExcludeTags []string `yaml:"excludeTags"` // Skip flows with any of these

	// Execution settings
	Env map[string]string `yaml:"env"` // Variables handed to every flow

	Engine  EngineConfig  `yaml:"engine"`
	Output  OutputConfig  `yaml:"output"`
	History HistoryConfig `yaml:"history"`
	Logon   LogonConfig   `yaml:"logon"`
}

// Load reads a workspace config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir looks for sapwiz.yaml or sapwiz.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try sapwiz.yaml first
	configPath := filepath.Join(dir, "sapwiz.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try sapwiz.yml
	configPath = filepath.Join(dir, "sapwiz.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return empty config
	return &Config{}, nil
}
