package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a patchfactory configuration from the given YAML file path.
// After parsing, it fills in defaults for values the file does not set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./patchfactory.yaml, ~/.patchfactory/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"patchfactory.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".patchfactory", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no patchfactory config found (searched: %v)", candidates)
}

// applyDefaults fills in values the config file does not set. The codebase
// root has no default: it identifies the project under analysis and must be
// supplied explicitly.
func applyDefaults(cfg *Config) {
	if cfg.PatchDir == "" {
		cfg.PatchDir = "patches"
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = "gpt-4o-mini"
	}
	if cfg.Inference.APIKeyEnv == "" {
		cfg.Inference.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Stages.RootCauseMaxIterations == 0 {
		cfg.Stages.RootCauseMaxIterations = 5
	}
	if cfg.Stages.FixPlanMaxIterations == 0 {
		cfg.Stages.FixPlanMaxIterations = 3
	}
	if cfg.Stages.PatchMaxIterations == 0 {
		cfg.Stages.PatchMaxIterations = 5
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8799
	}
}
