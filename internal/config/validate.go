package config

import (
	"fmt"
	"os"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.CodebaseRoot == "" {
		errs = append(errs, ValidationError{Field: "codebase_root", Message: "is required"})
	} else if info, err := os.Stat(cfg.CodebaseRoot); err != nil || !info.IsDir() {
		errs = append(errs, ValidationError{
			Field:   "codebase_root",
			Message: fmt.Sprintf("%q is not an existing directory", cfg.CodebaseRoot),
		})
	}

	if cfg.PatchDir == "" {
		errs = append(errs, ValidationError{Field: "patch_dir", Message: "is required"})
	}

	if cfg.Inference.Model == "" {
		errs = append(errs, ValidationError{Field: "inference.model", Message: "is required"})
	}
	if cfg.Inference.APIKeyEnv == "" {
		errs = append(errs, ValidationError{Field: "inference.api_key_env", Message: "is required"})
	} else if os.Getenv(cfg.Inference.APIKeyEnv) == "" {
		errs = append(errs, ValidationError{
			Field:   "inference.api_key_env",
			Message: fmt.Sprintf("environment variable %s is not set", cfg.Inference.APIKeyEnv),
		})
	}
	if cfg.Inference.Temperature < 0 || cfg.Inference.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "inference.temperature",
			Message: fmt.Sprintf("%v is outside the valid range [0, 2]", cfg.Inference.Temperature),
		})
	}

	caps := []struct {
		field string
		value int
	}{
		{"stages.rca_max_iterations", cfg.Stages.RootCauseMaxIterations},
		{"stages.fix_max_iterations", cfg.Stages.FixPlanMaxIterations},
		{"stages.patch_max_iterations", cfg.Stages.PatchMaxIterations},
	}
	for _, c := range caps {
		if c.value < 1 {
			errs = append(errs, ValidationError{
				Field:   c.field,
				Message: "must be at least 1",
			})
		}
	}

	if cfg.Web.Port < 1 || cfg.Web.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "web.port",
			Message: fmt.Sprintf("%d is not a valid TCP port", cfg.Web.Port),
		})
	}

	return errs
}
