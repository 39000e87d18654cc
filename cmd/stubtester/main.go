package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stubtester/internal/config"
	"stubtester/internal/logging"
	"stubtester/internal/runner"
	"stubtester/internal/ui"
	"stubtester/internal/watch"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Logger
var logger *zap.Logger

// options are the root command flags.
type options struct {
	keep       bool
	verbose    bool
	debug      bool
	watch      bool
	configPath string
	engine     string
	strategy   string
}

// exitError carries a process exit status out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// newRootCmd builds the stubtester command writing to out and errOut.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stubtester [PATH]",
		Short: "Run the documentation examples of .pyi stubs and markdown files",
		Long: `stubtester collects the interactive examples embedded in interface
stubs (.pyi docstrings) and markdown documents (fenced python blocks),
generates pytest modules for them in a temporary workspace, runs pytest once
and reports failures against the original files and lines.

PATH is a stub file, a markdown file or a directory (default ".").`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.debug {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), path, opts, ui.NewConsole(out, errOut))
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.keep, "keep", false, "keep the generated workspace after the run")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose engine output and progress")
	flags.BoolVar(&opts.debug, "debug", false, "debug logging")
	flags.BoolVar(&opts.watch, "watch", false, "re-run when stub or markdown files change")
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultFileName+")")
	flags.StringVar(&opts.engine, "engine", "", "test engine binary (default pytest)")
	flags.StringVar(&opts.strategy, "strategy", "", "stub extraction strategy: ast or regex")

	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(opts.configPath, wd)
	if err != nil {
		return nil, err
	}
	if opts.engine != "" {
		cfg.Engine.Binary = opts.engine
	}
	if opts.strategy != "" {
		cfg.Extract.Strategy = opts.strategy
	}
	if opts.keep {
		cfg.Workspace.Keep = true
	}
	if opts.debug {
		cfg.Logging.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, path string, opts *options, console *ui.Console) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		console.Error(err)
		return &exitError{code: 1}
	}

	if err := logging.Initialize(cfg.Logging.Options()); err != nil {
		console.Error(err)
		return &exitError{code: 1}
	}
	defer logging.Sync()
	logging.Boot("stubtester %s: target=%s strategy=%s engine=%s", version, path, cfg.Extract.Strategy, cfg.Engine.Binary)

	r, err := runner.New(cfg, nil)
	if err != nil {
		console.Error(err)
		return &exitError{code: 1}
	}
	r.Info = console.Info

	console.Banner(version, path)
	code := runOnce(ctx, r, path, opts.verbose, console)

	if opts.watch && ctx.Err() == nil {
		w, err := watch.New(path, r.Discoverer(), 0)
		if err != nil {
			console.Error(err)
			return &exitError{code: 1}
		}
		console.Info("Watching %s for changes (Ctrl+C to stop)", path)
		w.Run(ctx, func(ctx context.Context, paths []string) {
			console.Info("Changed: %s", strings.Join(paths, ", "))
			code = runOnce(ctx, r, path, opts.verbose, console)
		})
	}

	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// runOnce performs one run and prints its outcome, returning the exit code.
func runOnce(ctx context.Context, r *runner.Runner, path string, verbose bool, console *ui.Console) int {
	outcome, err := r.Run(ctx, runner.Options{Path: path, Verbose: verbose})
	if err != nil {
		if outcome != nil {
			console.Report(outcome.Report)
		}
		logger.Warn("Run failed", zap.String("path", path), zap.Error(err))
		console.Error(err)
		return 1
	}

	logger.Debug("Run finished",
		zap.String("path", path),
		zap.Int("modules", outcome.Modules),
		zap.Int("exit_code", outcome.ExitCode),
		zap.Int("total", outcome.Result.Total),
		zap.Int("passed", outcome.Result.Passed))

	if outcome.Passed() {
		if verbose {
			console.Report(outcome.Report)
		}
		console.Passed(outcome.Result)
		return 0
	}
	console.Report(outcome.Report)
	console.Failed(outcome.Result, outcome.Counted, outcome.ExitCode)
	return outcome.ExitCode
}

// execute runs the command with args and returns the process exit code.
func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := newRootCmd(out, errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.code
	default:
		// Flag and argument errors.
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
