package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"regress/internal/fixture"
)

type palette struct {
	green func(a ...interface{}) string
	red   func(a ...interface{}) string
	gray  func(a ...interface{}) string
	bold  func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		green: mk(color.FgGreen),
		red:   mk(color.FgRed),
		gray:  mk(color.FgHiBlack),
		bold:  mk(color.Bold),
	}
}

// printer writes the progress report. Write errors are ignored: the report
// is best-effort and the summary value is authoritative.
type printer struct {
	out io.Writer
	p   palette
}

func newPrinter(out io.Writer, colored bool) *printer {
	return &printer{out: out, p: newPalette(colored)}
}

func (pr *printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(pr.out, format, args...)
}

func (pr *printer) start(f fixture.Fixture) {
	pr.printf("Testing %s... ", f.Name)
}

func (pr *printer) finish(r FixtureResult) {
	switch r.State {
	case StateVerifiedPass:
		pr.printf("%s\n", pr.p.green("PASSED"))
	case StateCrashed:
		pr.printf("%s\n", pr.p.red("FAILED (Crash)"))
		pr.block(r.Invocation.Stderr)
	case StateTimedOut:
		pr.printf("%s\n", pr.p.red("FAILED (Timeout)"))
	case StateLaunchError:
		pr.printf("%s\n", pr.p.red(fmt.Sprintf("FAILED (%s)", r.Diagnostic())))
	case StateVerifiedFail:
		pr.printf("\n%s\n", pr.p.red(fmt.Sprintf("FAILED. %s", r.Diagnostic())))
		if r.Verification != nil && r.Verification.ClosestLine != "" {
			pr.printf("%s\n", pr.p.gray(fmt.Sprintf("Closest line: '%s'", r.Verification.ClosestLine)))
		}
		pr.printf("Got:\n")
		pr.block(r.Invocation.Stdout)
	default:
		pr.printf("%s\n", pr.p.red(fmt.Sprintf("FAILED (%s)", r.State)))
	}
}

func (pr *printer) block(text string) {
	if text == "" {
		return
	}
	pr.printf("%s", text)
	if !strings.HasSuffix(text, "\n") {
		pr.printf("\n")
	}
}

func (pr *printer) summary(s *RunSummary) {
	line := fmt.Sprintf("Results: %d/%d tests passed.", s.Passed, s.Total)
	if s.OK() {
		line = pr.p.green(line)
	} else {
		line = pr.p.red(line)
	}
	pr.printf("\n%s\n", pr.p.bold(line))
}
