package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "patchfactory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
codebase_root: /tmp/codebase
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PatchDir != "patches" {
		t.Errorf("PatchDir = %q, want %q", cfg.PatchDir, "patches")
	}
	if cfg.Inference.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default", cfg.Inference.Model)
	}
	if cfg.Inference.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("APIKeyEnv = %q, want default", cfg.Inference.APIKeyEnv)
	}
	if cfg.Stages.RootCauseMaxIterations != 5 {
		t.Errorf("RootCauseMaxIterations = %d, want 5", cfg.Stages.RootCauseMaxIterations)
	}
	if cfg.Stages.FixPlanMaxIterations != 3 {
		t.Errorf("FixPlanMaxIterations = %d, want 3", cfg.Stages.FixPlanMaxIterations)
	}
	if cfg.Stages.PatchMaxIterations != 5 {
		t.Errorf("PatchMaxIterations = %d, want 5", cfg.Stages.PatchMaxIterations)
	}
	if cfg.Web.Port != 8799 {
		t.Errorf("Web.Port = %d, want 8799", cfg.Web.Port)
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
codebase_root: /tmp/codebase
patch_dir: /tmp/out
inference:
  model: gpt-4o
  temperature: 0.2
stages:
  rca_max_iterations: 7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PatchDir != "/tmp/out" {
		t.Errorf("PatchDir = %q", cfg.PatchDir)
	}
	if cfg.Inference.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Inference.Model)
	}
	if cfg.Stages.RootCauseMaxIterations != 7 {
		t.Errorf("RootCauseMaxIterations = %d, want 7", cfg.Stages.RootCauseMaxIterations)
	}
	// Unset caps still get defaults.
	if cfg.Stages.FixPlanMaxIterations != 3 {
		t.Errorf("FixPlanMaxIterations = %d, want 3", cfg.Stages.FixPlanMaxIterations)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "codebase_root: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PF_TEST_KEY", "sk-test")

	valid := &Config{
		CodebaseRoot: root,
		PatchDir:     "patches",
		Inference:    Inference{Model: "gpt-4o-mini", APIKeyEnv: "PF_TEST_KEY"},
		Stages:       Stages{RootCauseMaxIterations: 5, FixPlanMaxIterations: 3, PatchMaxIterations: 5},
		Web:          Web{Port: 8799},
	}
	if errs := Validate(valid); len(errs) != 0 {
		t.Fatalf("valid config produced errors: %v", errs)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing root", func(c *Config) { c.CodebaseRoot = "" }, "codebase_root"},
		{"root not a dir", func(c *Config) { c.CodebaseRoot = filepath.Join(root, "nope") }, "codebase_root"},
		{"missing model", func(c *Config) { c.Inference.Model = "" }, "inference.model"},
		{"unset api key", func(c *Config) { c.Inference.APIKeyEnv = "PF_TEST_UNSET" }, "inference.api_key_env"},
		{"bad temperature", func(c *Config) { c.Inference.Temperature = 3 }, "inference.temperature"},
		{"zero cap", func(c *Config) { c.Stages.FixPlanMaxIterations = 0 }, "stages.fix_max_iterations"},
		{"bad port", func(c *Config) { c.Web.Port = -1 }, "web.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			errs := Validate(&cfg)
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "codebase_root", Message: "is required"}
	if !strings.Contains(e.Error(), "codebase_root") {
		t.Errorf("Error() = %q", e.Error())
	}
}
