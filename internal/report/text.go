package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgYellow)
	heading   = color.New(color.Bold)
)

// WriteText writes a human readable report. Passing packages are listed
// only when verbose is set.
func (r *Report) WriteText(w io.Writer, verbose bool) error {
	for _, p := range r.Packages {
		if !verbose && !p.Failed() {
			continue
		}
		if _, err := fmt.Fprintln(w, heading.Sprint(p.Name)); err != nil {
			return err
		}
		for _, c := range p.Checks {
			if !verbose && c.Status != StatusFail {
				continue
			}
			if err := writeCheck(w, c); err != nil {
				return err
			}
		}
	}

	s := r.Summary()
	line := fmt.Sprintf("%d packages, %d checks: %d passed, %d failed, %d skipped",
		s.Packages, s.Checks, s.Passed, s.Failed, s.Skipped)
	if s.Failed > 0 {
		line = color.RedString(line)
	} else {
		line = color.GreenString(line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func writeCheck(w io.Writer, c CheckResult) error {
	mark := passColor.Sprint("✓")
	switch c.Status {
	case StatusFail:
		mark = failColor.Sprint("✗")
	case StatusSkip:
		mark = skipColor.Sprint("-")
	}
	if _, err := fmt.Fprintf(w, "  %s %s\n", mark, c.Name); err != nil {
		return err
	}
	if c.Status != StatusFail || c.Message == "" {
		return nil
	}
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		if _, err := fmt.Fprintf(w, "      %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
