// Package engine invokes the external test engine (pytest) once over a
// workspace and captures its report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stubtester/internal/config"
	"stubtester/internal/logging"
	"stubtester/internal/tactile"
)

// ErrEngineUnavailable means the engine process could not be started.
// It is distinct from a run that reports failing tests.
var ErrEngineUnavailable = errors.New("test engine unavailable")

// ExitNoTestsCollected is pytest's exit status when nothing was collected.
const ExitNoTestsCollected = 5

// Report is the captured output of one engine run.
type Report struct {
	Output    string
	ExitCode  int
	Duration  time.Duration
	Truncated bool
}

// Passed reports whether the engine exited zero.
func (r Report) Passed() bool {
	return r.ExitCode == 0
}

// NoTests reports whether the engine collected nothing.
func (r Report) NoTests() bool {
	return r.ExitCode == ExitNoTestsCollected
}

// Options are per-run invocation settings.
type Options struct {
	// Verbose selects -v over -q.
	Verbose bool
	// PythonPath entries are prepended to PYTHONPATH so examples can import
	// the documented package.
	PythonPath []string
}

// Engine runs pytest through a tactile.Executor.
type Engine struct {
	executor tactile.Executor
	cfg      config.ExecutionConfig
}

// New creates an engine that runs commands through executor.
func New(cfg config.ExecutionConfig, executor tactile.Executor) *Engine {
	return &Engine{executor: executor, cfg: cfg}
}

// NewFromConfig creates an engine backed by a direct host executor.
func NewFromConfig(cfg *config.Config) *Engine {
	execCfg := tactile.DefaultExecutorConfig()
	execCfg.DefaultTimeout = cfg.GetEngineTimeout()
	execCfg.MaxTimeout = 0
	execCfg.MaxOutputBytes = cfg.Engine.MaxOutputBytes
	execCfg.AllowedEnvironment = cfg.Engine.AllowedEnvVars
	return New(cfg.Engine, tactile.NewDirectExecutorWithConfig(execCfg))
}

// Command builds the engine command for a workspace.
func (e *Engine) Command(workspace string, opts Options) tactile.Command {
	verbosity := "-q"
	if opts.Verbose {
		verbosity = "-v"
	}
	args := []string{workspace, "--doctest-modules", verbosity, "--tb=short"}
	args = append(args, e.cfg.ExtraArgs...)

	cmd := tactile.Command{
		Binary:           e.cfg.Binary,
		Arguments:        args,
		WorkingDirectory: workspace,
		CombinedOutput:   true,
	}
	if pp := pythonPath(opts.PythonPath); pp != "" {
		cmd.Environment = []string{"PYTHONPATH=" + pp}
	}
	return cmd
}

// pythonPath joins entries (deduplicated, in order) ahead of any inherited
// PYTHONPATH.
func pythonPath(entries []string) string {
	entries = append([]string(nil), entries...)
	if existing := os.Getenv("PYTHONPATH"); existing != "" {
		entries = append(entries, filepath.SplitList(existing)...)
	}
	seen := make(map[string]bool, len(entries))
	var out []string
	for _, p := range entries {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return strings.Join(out, string(os.PathListSeparator))
}

// Invoke runs the engine once over workspace and blocks until it exits.
// A start failure wraps ErrEngineUnavailable; a timeout or cancellation
// is returned as an error alongside whatever output was captured.
func (e *Engine) Invoke(ctx context.Context, workspace string, opts Options) (Report, error) {
	cmd := e.Command(workspace, opts)
	logging.Engine("running %s", cmd.CommandString())

	result, err := e.executor.Execute(ctx, cmd)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if result.IsError() {
		return Report{}, fmt.Errorf("%w: %s: %s", ErrEngineUnavailable, cmd.Binary, result.Error)
	}

	report := Report{
		Output:    result.Output(),
		ExitCode:  result.ExitCode,
		Duration:  result.Duration,
		Truncated: result.Truncated,
	}
	if usage := result.ResourceUsage; usage != nil {
		logging.EngineDebug("engine cpu=%dms maxrss=%d bytes", usage.TotalCPUTimeMs(), usage.MaxRSSBytes)
	}

	if result.Killed {
		if ctx.Err() != nil {
			return report, fmt.Errorf("engine interrupted: %w", ctx.Err())
		}
		return report, fmt.Errorf("engine killed: %s", result.KillReason)
	}

	if result.IsNonZeroExit() {
		logging.Engine("engine exited %d in %s", report.ExitCode, report.Duration)
	} else {
		logging.Engine("engine passed in %s", report.Duration)
	}
	return report, nil
}
