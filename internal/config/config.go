// Package config loads stubtester settings from stubtester.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no explicit
// config path is given.
const DefaultFileName = "stubtester.yaml"

// Config holds all stubtester configuration.
type Config struct {
	Engine    ExecutionConfig `yaml:"engine"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Extract   ExtractConfig   `yaml:"extract"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:    DefaultExecutionConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Extract:   DefaultExtractConfig(),
		Workspace: DefaultWorkspaceConfig(),
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Resolve loads path when set, otherwise DefaultFileName from dir.
// An explicitly named file must exist.
func Resolve(path, dir string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return Load(path)
	}
	return Load(filepath.Join(dir, DefaultFileName))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if bin := os.Getenv("STUBTESTER_ENGINE"); bin != "" {
		c.Engine.Binary = bin
	}
	if dir := os.Getenv("STUBTESTER_WORKSPACE_DIR"); dir != "" {
		c.Workspace.BaseDir = dir
	}
	if level := os.Getenv("STUBTESTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetEngineTimeout returns the engine timeout as a duration.
// Zero means the run is bounded only by the caller's context.
func (c *Config) GetEngineTimeout() time.Duration {
	if c.Engine.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ValidStrategies lists the supported stub extraction strategies.
var ValidStrategies = []string{StrategyAST, StrategyRegex}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Engine.Binary) == "" {
		errs = append(errs, fmt.Errorf("engine binary not configured"))
	}
	if c.Engine.Timeout != "" {
		if _, err := time.ParseDuration(c.Engine.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid engine timeout %q: %w", c.Engine.Timeout, err))
		}
	}

	validStrategy := false
	for _, s := range ValidStrategies {
		if c.Extract.Strategy == s {
			validStrategy = true
			break
		}
	}
	if !validStrategy {
		errs = append(errs, fmt.Errorf("invalid extract strategy: %s (valid: %v)", c.Extract.Strategy, ValidStrategies))
	}

	if len(c.Discovery.StubExtensions) == 0 && len(c.Discovery.MarkdownExtensions) == 0 {
		errs = append(errs, fmt.Errorf("discovery has no file extensions"))
	}

	if c.Workspace.DirName != "" && strings.ContainsAny(c.Workspace.DirName, `/\`) {
		errs = append(errs, fmt.Errorf("workspace dir_name must be a plain name, got %q", c.Workspace.DirName))
	}

	return errors.Join(errs...)
}
