package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stubtester/internal/config"
	"stubtester/internal/engine"
	"stubtester/internal/tactile"
	"stubtester/internal/types"
)

const addStub = `from typing import Any

def add(a: int, b: int) -> int:
    """Add two numbers.

    >>> add(2, 3)
    5
    """
`

// fakeExecutor returns a canned result and records what it was asked to run.
type fakeExecutor struct {
	result *tactile.ExecutionResult
	err    error
	panic  string

	calls int
	cmd   tactile.Command
	files map[string]string
}

func (f *fakeExecutor) Execute(_ context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	f.calls++
	f.cmd = cmd
	f.files = make(map[string]string)
	entries, _ := os.ReadDir(cmd.WorkingDirectory)
	for _, e := range entries {
		data, _ := os.ReadFile(filepath.Join(cmd.WorkingDirectory, e.Name()))
		f.files[e.Name()] = string(data)
	}
	if f.panic != "" {
		panic(f.panic)
	}
	return f.result, f.err
}

func (f *fakeExecutor) Validate(tactile.Command) error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newRunner returns a runner whose workspaces live under the returned base
// directory and whose display paths are relative to root.
func newRunner(t *testing.T, root string, executor tactile.Executor) (*Runner, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	base := t.TempDir()
	cfg.Workspace.BaseDir = base

	var eng *engine.Engine
	if executor != nil {
		eng = engine.New(cfg.Engine, executor)
	}
	r, err := New(cfg, eng)
	require.NoError(t, err)
	r.discoverer.BaseDir = root
	return r, base
}

func assertNoWorkspace(t *testing.T, base string) {
	t.Helper()
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace directory must be removed")
}

func TestRun_RemapsFailingReport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), addStub)

	fake := &fakeExecutor{result: &tactile.ExecutionResult{
		Success:  true,
		ExitCode: 1,
		Stdout: strings.Join([]string{
			"core_test.py::core_test.test_add FAILED",
			"/tmp/stubtester-x/core_test.py:4: in test_add",
			"1 failed in 0.02s",
			"",
		}, "\n"),
	}}
	r, base := newRunner(t, root, fake)

	outcome, err := r.Run(context.Background(), Options{Path: root})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Contains(t, fake.files, "core_test.py")
	assert.Contains(t, fake.files["core_test.py"], `# line 3 "core.pyi"`)

	assert.False(t, outcome.Passed())
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, types.TestResult{Total: 1, Passed: 0}, outcome.Result)
	assert.True(t, outcome.Counted)
	assert.Equal(t, 1, outcome.Modules)
	assert.Contains(t, outcome.Report, "core.pyi::core.test_add FAILED")
	assert.Contains(t, outcome.Report, "core.pyi:3: in test_add")
	assert.NotContains(t, outcome.Report, "core_test.py:4")

	assertNoWorkspace(t, base)
}

func TestRun_OverlappingArtifactNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pyi"), addStub)
	writeFile(t, filepath.Join(root, "a_test.pyi"), addStub)

	fake := &fakeExecutor{result: &tactile.ExecutionResult{
		Success:  true,
		ExitCode: 1,
		Stdout: strings.Join([]string{
			"a_2_test.py::a_2_test.test_add PASSED",
			"a_test_test.py::a_test_test.test_add FAILED",
			"1 failed, 1 passed in 0.01s",
			"",
		}, "\n"),
	}}
	r, _ := newRunner(t, root, fake)

	outcome, err := r.Run(context.Background(), Options{Path: root})
	require.NoError(t, err)
	assert.Contains(t, fake.files, "a_2_test.py")
	assert.Contains(t, fake.files, "a_test_test.py")
	assert.NotContains(t, fake.files, "a_test.py")

	assert.Contains(t, outcome.Report, "a.pyi::a.test_add PASSED")
	assert.Contains(t, outcome.Report, "a_test.pyi::a_test.test_add FAILED")
	assert.Equal(t, types.TestResult{Total: 2, Passed: 1}, outcome.Result)
}

func TestRun_PythonPathAndVerbose(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "core.pyi"), addStub)

	fake := &fakeExecutor{result: &tactile.ExecutionResult{Success: true, Stdout: "1 passed in 0.01s\n"}}
	r, _ := newRunner(t, root, fake)

	var lines []string
	r.Info = func(format string, args ...any) {
		lines = append(lines, format)
	}

	outcome, err := r.Run(context.Background(), Options{Path: root, Verbose: true})
	require.NoError(t, err)
	assert.True(t, outcome.Passed())
	assert.Equal(t, types.TestResult{Total: 1, Passed: 1}, outcome.Result)

	assert.Contains(t, fake.cmd.Arguments, "-v")
	require.Len(t, fake.cmd.Environment, 1)
	env := fake.cmd.Environment[0]
	assert.True(t, strings.HasPrefix(env, "PYTHONPATH="+root+string(os.PathListSeparator)+filepath.Join(root, "pkg")))
	assert.Contains(t, lines, "Workspace: %s")
}

func TestRun_NoArtifacts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), "print('hi')\n")

	fake := &fakeExecutor{}
	r, base := newRunner(t, root, fake)

	_, err := r.Run(context.Background(), Options{Path: root})
	assert.ErrorIs(t, err, ErrNoExamples)
	assert.Zero(t, fake.calls)
	assertNoWorkspace(t, base)
}

func TestRun_ArtifactsWithoutExamples(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), "def f() -> None:\n    \"\"\"Nothing to run.\"\"\"\n")
	writeFile(t, filepath.Join(root, "README.md"), "# Title\n\n```bash\nls\n```\n")

	fake := &fakeExecutor{}
	r, base := newRunner(t, root, fake)

	_, err := r.Run(context.Background(), Options{Path: root})
	assert.ErrorIs(t, err, ErrNoExamples)
	assert.Zero(t, fake.calls)
	assertNoWorkspace(t, base)
}

func TestRun_EngineCollectedNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), addStub)

	fake := &fakeExecutor{result: &tactile.ExecutionResult{
		Success:  true,
		ExitCode: engine.ExitNoTestsCollected,
		Stdout:   "no tests ran in 0.01s\n",
	}}
	r, base := newRunner(t, root, fake)

	_, err := r.Run(context.Background(), Options{Path: root})
	assert.ErrorIs(t, err, ErrNoExamples)
	assertNoWorkspace(t, base)
}

func TestRun_InputErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.py"), "")
	r, base := newRunner(t, root, &fakeExecutor{})

	_, err := r.Run(context.Background(), Options{Path: filepath.Join(root, "missing")})
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = r.Run(context.Background(), Options{Path: filepath.Join(root, "core.py")})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	assertNoWorkspace(t, base)
}

func TestRun_EngineUnavailable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), addStub)

	fake := &fakeExecutor{err: errors.New("exec: \"pytest\": executable file not found in $PATH")}
	r, base := newRunner(t, root, fake)

	_, err := r.Run(context.Background(), Options{Path: root})
	assert.ErrorIs(t, err, engine.ErrEngineUnavailable)
	assertNoWorkspace(t, base)
}

func TestRun_PanicIsInternalError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), addStub)

	fake := &fakeExecutor{panic: "engine exploded"}
	r, base := newRunner(t, root, fake)

	outcome, err := r.Run(context.Background(), Options{Path: root})
	assert.Nil(t, outcome)
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "engine exploded")
	assertNoWorkspace(t, base)
}

func TestRun_KeepWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core.pyi"), addStub)

	cfg := config.DefaultConfig()
	base := t.TempDir()
	cfg.Workspace.BaseDir = base
	cfg.Workspace.Keep = true
	fake := &fakeExecutor{result: &tactile.ExecutionResult{Success: true, Stdout: "1 passed in 0.01s\n"}}
	r, err := New(cfg, engine.New(cfg.Engine, fake))
	require.NoError(t, err)

	var kept []string
	r.Info = func(format string, args ...any) {
		if format == "Kept workspace: %s" {
			kept = append(kept, args[0].(string))
		}
	}

	_, err = r.Run(context.Background(), Options{Path: root})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.FileExists(t, filepath.Join(kept[0], "core_test.py"))
}

func TestRun_MarkdownOrdinals(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# Usage\n\n```python\n>>> 1 + 1\n2\n```\n\n```python\n>>> 2 * 2\n4\n```\n")

	fake := &fakeExecutor{result: &tactile.ExecutionResult{Success: true, Stdout: "2 passed in 0.01s\n"}}
	r, _ := newRunner(t, root, fake)

	_, err := r.Run(context.Background(), Options{Path: root})
	require.NoError(t, err)

	text := fake.files["README_test.py"]
	assert.Contains(t, text, "def test_Usage_0():")
	assert.Contains(t, text, "def test_Usage_1():")
}

// TestRun_Pytest runs the real engine when it is installed.
func TestRun_Pytest(t *testing.T) {
	if _, err := exec.LookPath("pytest"); err != nil {
		t.Skip("pytest not on PATH")
	}

	stub := func(want string) string {
		return "def two() -> int:\n    \"\"\"\n    >>> 2 + 2\n    " + want + "\n    \"\"\"\n"
	}

	root := t.TempDir()
	path := filepath.Join(root, "calc.pyi")
	writeFile(t, path, stub("4"))

	r, base := newRunner(t, root, nil)
	outcome, err := r.Run(context.Background(), Options{Path: path})
	require.NoError(t, err)
	assert.True(t, outcome.Passed(), outcome.Report)
	assertNoWorkspace(t, base)

	writeFile(t, path, stub("5"))
	outcome, err = r.Run(context.Background(), Options{Path: path})
	require.NoError(t, err)
	assert.False(t, outcome.Passed())
	assert.NotZero(t, outcome.ExitCode)
	assert.Positive(t, outcome.Result.Failed())
	assert.Contains(t, outcome.Report, "calc.pyi")
	assertNoWorkspace(t, base)
}
