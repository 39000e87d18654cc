package config

// ExecutionConfig configures the external test engine invocation.
type ExecutionConfig struct {
	// Binary is the engine executable, looked up on PATH.
	Binary string `yaml:"binary" json:"binary,omitempty"`

	// ExtraArgs are appended after the standard doctest arguments.
	ExtraArgs []string `yaml:"extra_args" json:"extra_args,omitempty"`

	// Timeout bounds one engine run (Go duration string, empty = no limit).
	Timeout string `yaml:"timeout" json:"timeout,omitempty"`

	// MaxOutputBytes caps captured stdout/stderr.
	MaxOutputBytes int64 `yaml:"max_output_bytes" json:"max_output_bytes,omitempty"`

	// AllowedEnvVars restricts the host variables passed to the engine.
	// Empty passes the whole host environment.
	AllowedEnvVars []string `yaml:"allowed_env_vars" json:"allowed_env_vars,omitempty"`
}

// DefaultExecutionConfig returns the pytest defaults.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Binary:         "pytest",
		MaxOutputBytes: 10 * 1024 * 1024,
	}
}
