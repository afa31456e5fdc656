package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// ColorEnabled reports whether colored output should be written to f: the
// caller asked for it, NO_COLOR is unset and f is a terminal.
func ColorEnabled(f *os.File, requested bool) bool {
	if !requested || os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Summary renders the itemized, human-readable verdict of a report.
type Summary struct {
	w       io.Writer
	pass    *color.Color
	fail    *color.Color
	errored *color.Color
	dim     *color.Color
	bold    *color.Color
}

// NewSummary creates a Summary writing to w.
func NewSummary(w io.Writer, useColor bool) *Summary {
	s := &Summary{
		w:       w,
		pass:    color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		errored: color.New(color.FgYellow, color.Bold),
		dim:     color.New(color.Faint),
		bold:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{s.pass, s.fail, s.errored, s.dim, s.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

func (s *Summary) label(status schemas.Status) string {
	switch status {
	case schemas.StatusPass:
		return s.pass.Sprint("PASS ")
	case schemas.StatusFail:
		return s.fail.Sprint("FAIL ")
	case schemas.StatusError:
		return s.errored.Sprint("ERROR")
	default:
		return s.dim.Sprint("SKIP ")
	}
}

// Print writes one line per check in fixed order, then notes, the screenshot
// path and the overall verdict.
func (s *Summary) Print(report *schemas.ValidationReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", s.bold.Sprint("Validation of"), report.Target, s.dim.Sprintf("(%s)", report.Mode))

	width := 0
	for _, name := range schemas.AllChecks {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, res := range report.Ordered() {
		fmt.Fprintf(&b, "  %s  %-*s  %s\n", s.label(res.Status), width, res.Name, res.Message)
	}

	for _, note := range report.Notes {
		fmt.Fprintf(&b, "  %s %s\n", s.dim.Sprint("note:"), note)
	}
	if report.Screenshot != "" {
		fmt.Fprintf(&b, "  %s %s\n", s.dim.Sprint("screenshot:"), report.Screenshot)
	}

	if report.OverallPass {
		fmt.Fprintf(&b, "%s all %d checks passed\n", s.pass.Sprint("PASSED"), len(report.Results))
	} else {
		notPassing := len(report.Results) - report.Counts()[schemas.StatusPass]
		fmt.Fprintf(&b, "%s %d of %d checks did not pass\n", s.fail.Sprint("FAILED"), notPassing, len(report.Results))
	}

	_, err := io.WriteString(s.w, b.String())
	return err
}
