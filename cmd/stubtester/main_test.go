package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoStub = `def two() -> int:
    """
    >>> 2 + 2
    %s
    """
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolate points workspaces at a fresh directory and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("STUBTESTER_WORKSPACE_DIR", base)
	t.Setenv("STUBTESTER_ENGINE", "")
	t.Setenv("STUBTESTER_LOG_LEVEL", "")
	return base
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// fakeEngine writes a shell script that prints output and exits with code.
func fakeEngine(t *testing.T, output string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "fake-pytest")
	script := "#!/bin/sh\ncat <<'EOF'\n" + output + "EOF\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCLI_NoExamples(t *testing.T) {
	base := isolate(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), "")

	code, _, stderr := runCLI(t, root)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
	assert.Contains(t, stderr, "no testable examples found")
	assertEmpty(t, base)
}

func TestCLI_InputErrors(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	code, _, stderr := runCLI(t, filepath.Join(root, "missing.pyi"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "path not found")

	py := filepath.Join(root, "core.py")
	writeFile(t, py, "")
	code, _, stderr = runCLI(t, py)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported file type")
}

func TestCLI_BadFlags(t *testing.T) {
	isolate(t)

	code, _, stderr := runCLI(t, "--strategy", "grammar", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid extract strategy")

	code, _, _ = runCLI(t, "--no-such-flag")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "a", "b")
	assert.Equal(t, 1, code)
}

func TestCLI_EngineUnavailable(t *testing.T) {
	base := isolate(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "calc.pyi"), twoStubWith("4"))

	code, _, stderr := runCLI(t, "--engine", filepath.Join(root, "no-such-engine"), root)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "test engine unavailable")
	assertEmpty(t, base)
}

func TestCLI_FailingReportIsRemapped(t *testing.T) {
	base := isolate(t)
	root := t.TempDir()
	stub := filepath.Join(root, "calc.pyi")
	writeFile(t, stub, twoStubWith("5"))

	engine := fakeEngine(t, "calc_test.py::calc_test.test_two FAILED\n1 failed, 1 passed in 0.01s\n", 1)
	code, stdout, _ := runCLI(t, "--engine", engine, stub)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "calc.pyi::calc.test_two FAILED")
	assert.NotContains(t, stdout, "calc_test.py")
	assert.Contains(t, stdout, "✗ 1 test(s) failed")
	assertEmpty(t, base)
}

func TestCLI_PassingAndKeep(t *testing.T) {
	base := isolate(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "calc.pyi"), twoStubWith("4"))

	engine := fakeEngine(t, "2 passed in 0.01s\n", 0)
	code, stdout, _ := runCLI(t, "--engine", engine, "--keep", root)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "✓ All tests passed!")
	assert.Contains(t, stdout, "Kept workspace:")

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(base, entries[0].Name(), "calc_test.py"))
}

func TestCLI_EngineExitCodePassesThrough(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "calc.pyi"), twoStubWith("4"))

	engine := fakeEngine(t, "INTERNALERROR> boom\n", 3)
	code, stdout, _ := runCLI(t, "--engine", engine, root)
	assert.Equal(t, 3, code)
	assert.Contains(t, stdout, "INTERNALERROR> boom")
	assert.Contains(t, stdout, "engine exit status 3")
}

func TestCLI_Pytest(t *testing.T) {
	if _, err := exec.LookPath("pytest"); err != nil {
		t.Skip("pytest not on PATH")
	}
	base := isolate(t)
	root := t.TempDir()
	stub := filepath.Join(root, "calc.pyi")

	writeFile(t, stub, twoStubWith("4"))
	code, stdout, _ := runCLI(t, stub)
	assert.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "✓ All tests passed!")

	writeFile(t, stub, twoStubWith("5"))
	code, stdout, _ = runCLI(t, "-v", stub)
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stdout, "calc.pyi")
	assert.Contains(t, stdout, "test(s) failed")
	assertEmpty(t, base)
}

func twoStubWith(want string) string {
	return fmt.Sprintf(twoStub, want)
}
