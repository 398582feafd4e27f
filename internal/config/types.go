package config

// Config is the top-level configuration structure parsed from patchfactory YAML.
type Config struct {
	CodebaseRoot string    `yaml:"codebase_root"`
	PatchDir     string    `yaml:"patch_dir"`
	Inference    Inference `yaml:"inference"`
	Stages       Stages    `yaml:"stages"`
	Web          Web       `yaml:"web"`
}

// Inference configures the OpenAI-compatible inference service.
type Inference struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float32 `yaml:"temperature"`
}

// Stages holds the per-stage iteration caps for the bounded agent loops.
type Stages struct {
	RootCauseMaxIterations int `yaml:"rca_max_iterations"`
	FixPlanMaxIterations   int `yaml:"fix_max_iterations"`
	PatchMaxIterations     int `yaml:"patch_max_iterations"`
}

// Web configures the HTTP front-end.
type Web struct {
	Port int `yaml:"port"`
}
