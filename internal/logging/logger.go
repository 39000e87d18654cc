// Package logging provides categorized structured logging for stubtester.
// All categories share one zap core; each category is a named child logger.
// Until Initialize is called every logger is a no-op, so packages can log
// freely from tests and library code without setup.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config resolution
	CategoryDiscovery Category = "discovery" // Artifact discovery walk
	CategoryExtract   Category = "extract"   // Stub and markdown block extraction
	CategorySynth     Category = "synth"     // Test module synthesis
	CategoryWorkspace Category = "workspace" // Ephemeral directory lifecycle
	CategoryEngine    Category = "engine"    // External test engine subprocess
	CategoryRemap     Category = "remap"     // Report rewriting
	CategoryWatch     Category = "watch"     // File watcher
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	DebugMode  bool            // forces debug level
	File       string          // optional log file; stderr when empty
	JSONFormat bool            // json encoder instead of console
	Categories map[string]bool // per-category toggles; missing means enabled
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*zap.SugaredLogger)
	closer     func()
)

// Initialize builds the shared zap core from opts. It may be called again
// to reconfigure; previously handed-out loggers keep their old core.
func Initialize(opts Options) error {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.DebugMode {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	var encoder zapcore.Encoder
	if opts.JSONFormat {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	var closeFn func()
	if opts.File != "" {
		ws, cleanup, err := zap.Open(opts.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = ws
		closeFn = cleanup
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level)))

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = root.Sync()
		closer()
	}
	root = logger
	closer = closeFn
	categories = opts.Categories
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns (or creates) the logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var l *zap.SugaredLogger
	if enabled, exists := categories[string(category)]; exists && !enabled {
		l = zap.NewNop().Sugar()
	} else {
		l = root.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries and closes the log file if one is open.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = root.Sync()
	if closer != nil {
		closer()
		closer = nil
	}
	root = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Timer measures an operation and logs its duration at debug level on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op under category.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw(t.op, "elapsed", elapsed)
	return elapsed
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Infof(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debugf(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warnf(format, args...) }

func Discovery(format string, args ...interface{}) { Get(CategoryDiscovery).Infof(format, args...) }
func DiscoveryDebug(format string, args ...interface{}) {
	Get(CategoryDiscovery).Debugf(format, args...)
}

func Extract(format string, args ...interface{})      { Get(CategoryExtract).Infof(format, args...) }
func ExtractDebug(format string, args ...interface{}) { Get(CategoryExtract).Debugf(format, args...) }
func ExtractWarn(format string, args ...interface{})  { Get(CategoryExtract).Warnf(format, args...) }

func Synth(format string, args ...interface{})      { Get(CategorySynth).Infof(format, args...) }
func SynthDebug(format string, args ...interface{}) { Get(CategorySynth).Debugf(format, args...) }

func Workspace(format string, args ...interface{}) { Get(CategoryWorkspace).Infof(format, args...) }
func WorkspaceDebug(format string, args ...interface{}) {
	Get(CategoryWorkspace).Debugf(format, args...)
}
func WorkspaceWarn(format string, args ...interface{}) { Get(CategoryWorkspace).Warnf(format, args...) }

func Engine(format string, args ...interface{})      { Get(CategoryEngine).Infof(format, args...) }
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debugf(format, args...) }
func EngineWarn(format string, args ...interface{})  { Get(CategoryEngine).Warnf(format, args...) }
func EngineError(format string, args ...interface{}) { Get(CategoryEngine).Errorf(format, args...) }

func Remap(format string, args ...interface{})      { Get(CategoryRemap).Infof(format, args...) }
func RemapDebug(format string, args ...interface{}) { Get(CategoryRemap).Debugf(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Infof(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debugf(format, args...) }
func WatchWarn(format string, args ...interface{})  { Get(CategoryWatch).Warnf(format, args...) }
