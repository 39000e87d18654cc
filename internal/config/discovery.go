package config

// Stub extraction strategies.
const (
	StrategyAST   = "ast"
	StrategyRegex = "regex"
)

// DiscoveryConfig controls which files are collected from a directory walk.
type DiscoveryConfig struct {
	// StubExtensions are interface-file extensions (with the dot).
	StubExtensions []string `yaml:"stub_extensions" json:"stub_extensions,omitempty"`
	// MarkdownExtensions are markdown-file extensions (with the dot).
	MarkdownExtensions []string `yaml:"markdown_extensions" json:"markdown_extensions,omitempty"`
	// ExcludeDirs are directory names never descended into.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs,omitempty"`
	// ExcludePatterns are glob patterns matched against each path segment.
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns,omitempty"`
}

// DefaultDiscoveryConfig returns the default deny-list.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		StubExtensions:     []string{".pyi"},
		MarkdownExtensions: []string{".md"},
		ExcludeDirs: []string{
			".git",
			".hg",
			".svn",
			".venv",
			"venv",
			"env",
			"__pycache__",
			".mypy_cache",
			".pytest_cache",
			".ruff_cache",
			".tox",
			".nox",
			"node_modules",
			"build",
			"dist",
			"site-packages",
		},
		ExcludePatterns: []string{"*.egg-info", "*.dist-info"},
	}
}

// ExtractConfig controls documentation-example extraction.
type ExtractConfig struct {
	// Strategy selects how stub definitions are located: "ast" or "regex".
	Strategy string `yaml:"strategy" json:"strategy,omitempty"`
	// SetupKeywords mark an invocation as setup when it starts with one of them.
	SetupKeywords []string `yaml:"setup_keywords" json:"setup_keywords,omitempty"`
	// AssignmentIsSetup treats a bare assignment (not a comparison) as setup.
	AssignmentIsSetup bool `yaml:"assignment_is_setup" json:"assignment_is_setup"`
}

// DefaultExtractConfig returns the default extraction policy.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		Strategy:          StrategyAST,
		SetupKeywords:     []string{"import ", "from ", "def ", "class "},
		AssignmentIsSetup: true,
	}
}

// WorkspaceConfig controls the ephemeral workspace.
type WorkspaceConfig struct {
	// BaseDir holds workspaces; empty means the OS temp directory.
	BaseDir string `yaml:"base_dir" json:"base_dir,omitempty"`
	// DirName pins a fixed directory name instead of a unique one.
	DirName string `yaml:"dir_name" json:"dir_name,omitempty"`
	// Keep leaves the workspace on disk after the run.
	Keep bool `yaml:"keep" json:"keep,omitempty"`
}

// DefaultWorkspaceConfig returns the default workspace settings.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{}
}
