//go:build windows

package tactile

import (
	"errors"
	"os"
	"os/exec"
)

// getProcessResourceUsage is not collected on Windows.
func getProcessResourceUsage(cmd *exec.Cmd) *ResourceUsage {
	return nil
}

// setupProcessGroup is a no-op on Windows.
func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the process on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
