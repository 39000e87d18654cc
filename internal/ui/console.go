package ui

import (
	"fmt"
	"io"
	"strings"

	"stubtester/internal/types"
)

// Console writes user-facing lines. Summaries and info go to Out, errors to
// Err.
type Console struct {
	Out    io.Writer
	Err    io.Writer
	Styles Styles
}

// NewConsole creates a console with the detected theme.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{Out: out, Err: errOut, Styles: DefaultStyles()}
}

// Banner prints the title panel naming the target.
func (c *Console) Banner(version, target string) {
	title := c.Styles.Title.Render("stubtester " + version)
	sub := c.Styles.Muted.Render("doc examples in " + target)
	fmt.Fprintln(c.Out, c.Styles.Banner.Render(title+"\n"+sub))
}

// Info prints an "i" progress line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.Out, "%s %s\n", c.Styles.Info.Render("i"), fmt.Sprintf(format, args...))
}

// Warn prints a "!" line.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintf(c.Out, "%s %s\n", c.Styles.Warning.Render("!"), fmt.Sprintf(format, args...))
}

// Report prints the engine report verbatim apart from trailing blank lines.
func (c *Console) Report(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	fmt.Fprintln(c.Out, text)
}

// Passed prints the all-green summary line.
func (c *Console) Passed(result types.TestResult) {
	line := "✓ All tests passed!"
	if result.Total > 0 {
		line = fmt.Sprintf("%s (%d)", line, result.Passed)
	}
	fmt.Fprintln(c.Out, c.Styles.Success.Render(line))
}

// Failed prints the failure summary line. exitCode is shown when the
// report had no recognizable counts.
func (c *Console) Failed(result types.TestResult, counted bool, exitCode int) {
	var line string
	if counted && result.Failed() > 0 {
		line = fmt.Sprintf("✗ %d test(s) failed", result.Failed())
	} else {
		line = fmt.Sprintf("✗ tests failed (engine exit status %d)", exitCode)
	}
	fmt.Fprintln(c.Out, c.Styles.Error.Render(line))
}

// Error prints a one-line error summary.
func (c *Console) Error(err error) {
	fmt.Fprintf(c.Err, "%s %s\n", c.Styles.Error.Render("Error:"), err)
}
