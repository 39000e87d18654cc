// Package workspace owns the ephemeral directory generated modules are
// written into for one run.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"

	"stubtester/internal/config"
	"stubtester/internal/logging"
)

// Prefix starts every uniquely named workspace directory.
const Prefix = "stubtester-"

var (
	// ErrWorkspace wraps failures to create or remove a workspace.
	ErrWorkspace = errors.New("workspace error")

	// ErrPanic wraps a panic recovered inside With.
	ErrPanic = errors.New("panic")
)

// Workspace is an acquired directory. The zero value is not usable.
type Workspace struct {
	Path string
	keep bool
}

// Write stores a generated file flat inside the workspace.
func (w *Workspace) Write(name, text string) (string, error) {
	if filepath.Base(name) != name {
		return "", fmt.Errorf("workspace file name %q must not contain a directory", name)
	}
	path := filepath.Join(w.Path, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	logging.WorkspaceDebug("wrote %s (%d bytes)", path, len(text))
	return path, nil
}

// Manager creates and tears down workspaces.
type Manager struct {
	cfg config.WorkspaceConfig
	// OnKeep is called with the path of a kept workspace on release.
	OnKeep func(path string)
}

// NewManager creates a workspace manager.
func NewManager(cfg config.WorkspaceConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Location returns the directory Acquire would create. Unique names change
// on every call.
func (m *Manager) Location() string {
	base := m.cfg.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	name := m.cfg.DirName
	if name == "" {
		name = Prefix + uuid.NewString()
	}
	return filepath.Join(base, name)
}

// Acquire creates a fresh empty workspace. A directory already at the
// location, left by a crashed run, is removed first.
func (m *Manager) Acquire() (*Workspace, error) {
	path := m.Location()

	if _, err := os.Stat(path); err == nil {
		logging.WorkspaceWarn("clearing stale workspace %s", path)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("%w: failed to clear stale workspace %s: %w", ErrWorkspace, path, err)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", ErrWorkspace, path, err)
	}

	logging.Workspace("acquired %s", path)
	return &Workspace{Path: path, keep: m.cfg.Keep}, nil
}

// Release deletes the workspace unless it is kept.
func (m *Manager) Release(w *Workspace) error {
	if w == nil {
		return nil
	}
	if w.keep {
		logging.Workspace("keeping %s", w.Path)
		if m.OnKeep != nil {
			m.OnKeep(w.Path)
		}
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		return fmt.Errorf("%w: failed to remove %s: %w", ErrWorkspace, w.Path, err)
	}
	logging.WorkspaceDebug("released %s", w.Path)
	return nil
}

// With runs fn inside a freshly acquired workspace and releases it on every
// exit path. A panic in fn is returned as an error wrapping ErrPanic with
// the stack attached. A release failure is joined with fn's error.
func (m *Manager) With(fn func(*Workspace) error) (err error) {
	w, err := m.Acquire()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
		if rerr := m.Release(w); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	return fn(w)
}
