// Package runner drives one documentation-example run: discover artifacts,
// extract and synthesize test modules into a workspace, invoke the engine
// once, and remap its report back to the original files.
package runner

import (
	"context"
	"errors"
	"fmt"

	"stubtester/internal/config"
	"stubtester/internal/discovery"
	"stubtester/internal/engine"
	"stubtester/internal/extract"
	"stubtester/internal/logging"
	"stubtester/internal/remap"
	"stubtester/internal/synth"
	"stubtester/internal/types"
	"stubtester/internal/workspace"
)

var (
	ErrPathNotFound    = discovery.ErrPathNotFound
	ErrUnsupportedFile = discovery.ErrUnsupportedFile
	ErrWorkspace       = workspace.ErrWorkspace

	// ErrNoExamples means nothing testable was found under the target.
	ErrNoExamples = errors.New("no testable examples found")

	// ErrInternal wraps a panic recovered during a run.
	ErrInternal = errors.New("unexpected internal error")
)

// Options are per-run settings.
type Options struct {
	Path    string
	Verbose bool
}

// Outcome is the result of one run.
type Outcome struct {
	Result types.TestResult
	// Counted is false when the engine printed no recognizable summary.
	Counted bool
	// Report is the engine output with generated references remapped.
	Report   string
	ExitCode int
	Modules  int
	Blocks   int
}

// Passed reports whether the engine exited zero.
func (o *Outcome) Passed() bool {
	return o != nil && o.ExitCode == 0
}

// Runner wires the pipeline stages together.
type Runner struct {
	discoverer *discovery.Discoverer
	extractor  *extract.Extractor
	engine     *engine.Engine
	workspaces *workspace.Manager

	// Info receives progress lines meant for the user. Verbose-only lines
	// are sent only when Options.Verbose is set.
	Info func(format string, args ...any)
}

// New builds a runner from cfg. A nil eng uses a direct host engine.
func New(cfg *config.Config, eng *engine.Engine) (*Runner, error) {
	d, err := discovery.New(cfg.Discovery)
	if err != nil {
		return nil, err
	}
	if eng == nil {
		eng = engine.NewFromConfig(cfg)
	}
	r := &Runner{
		discoverer: d,
		extractor:  extract.NewFromConfig(cfg.Extract),
		engine:     eng,
		workspaces: workspace.NewManager(cfg.Workspace),
	}
	r.workspaces.OnKeep = func(path string) {
		r.info("Kept workspace: %s", path)
	}
	return r, nil
}

// Discoverer exposes the artifact discoverer, used by the watcher to apply
// the same deny-list.
func (r *Runner) Discoverer() *discovery.Discoverer {
	return r.discoverer
}

func (r *Runner) info(format string, args ...any) {
	if r.Info != nil {
		r.Info(format, args...)
	}
}

// Run executes the pipeline once. Input errors (ErrPathNotFound,
// ErrUnsupportedFile, ErrNoExamples) are returned before or without engine
// invocation. A failing engine run is not an error: inspect
// Outcome.ExitCode. The workspace is released on every path.
func (r *Runner) Run(ctx context.Context, opts Options) (*Outcome, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "run "+opts.Path)
	defer timer.Stop()

	target, err := r.discoverer.Discover(ctx, opts.Path)
	if err != nil {
		return nil, err
	}
	if len(target.Artifacts) == 0 {
		return nil, ErrNoExamples
	}

	var outcome *Outcome
	err = r.workspaces.With(func(ws *workspace.Workspace) error {
		if opts.Verbose {
			r.info("Workspace: %s", ws.Path)
			r.info("Found %d artifact(s)", len(target.Artifacts))
		}

		modules, blocks, err := r.synthesize(ctx, ws, target, opts.Verbose)
		if err != nil {
			return err
		}
		if len(modules) == 0 {
			return ErrNoExamples
		}

		r.info("Running %d example(s) from %d module(s)...", blocks, len(modules))
		report, err := r.engine.Invoke(ctx, ws.Path, engine.Options{
			Verbose:    opts.Verbose,
			PythonPath: append([]string{target.Root}, target.Dirs()...),
		})
		outcome = r.interpret(report, modules)
		outcome.Blocks = blocks
		if err != nil {
			return err
		}
		if report.NoTests() {
			return ErrNoExamples
		}
		return nil
	})

	if errors.Is(err, workspace.ErrPanic) {
		logging.Get(logging.CategoryBoot).Error(err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if errors.Is(err, ErrNoExamples) {
		return nil, err
	}
	return outcome, err
}

// synthesize extracts and writes one module per artifact with examples.
func (r *Runner) synthesize(ctx context.Context, ws *workspace.Workspace, target *discovery.Target, verbose bool) ([]synth.Module, int, error) {
	s := synth.New()
	s.Reserve(target.Artifacts...)
	var modules []synth.Module
	total := 0
	for _, a := range target.Artifacts {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		blocks, err := r.extractor.Extract(ctx, a)
		if err != nil {
			return nil, 0, err
		}
		m, ok := s.Build(a, blocks)
		if !ok {
			logging.SynthDebug("no examples in %s", a.Display)
			continue
		}
		if _, err := ws.Write(m.FileName, m.Text); err != nil {
			return nil, 0, err
		}
		if verbose {
			r.info("%s", m.Describe())
		}
		modules = append(modules, m)
		total += len(m.Tests)
	}
	return modules, total, nil
}

// interpret remaps the engine report and counts its results.
func (r *Runner) interpret(report engine.Report, modules []synth.Module) *Outcome {
	sources := make([]remap.Source, 0, len(modules))
	for _, m := range modules {
		// The table is rebuilt from the written text so the remapper only
		// trusts what the engine actually saw.
		sources = append(sources, remap.SourceFromText(m.FileName, m.Text))
	}
	text := remap.New(sources...).Remap(report.Output)
	if report.Truncated {
		logging.EngineWarn("engine output was truncated")
	}

	result, counted := engine.ParseSummary(text)
	logging.RemapDebug("remapped %d byte(s) of engine output", len(text))
	return &Outcome{
		Result:   result,
		Counted:  counted,
		Report:   text,
		ExitCode: report.ExitCode,
		Modules:  len(modules),
	}
}
