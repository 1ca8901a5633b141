package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/utafrali/catalogseed/internal/domain"
	"github.com/utafrali/catalogseed/internal/repository/memory"
	"github.com/utafrali/catalogseed/pkg/health"
)

// summary renders phase reports as a table.
type summary struct {
	w       io.Writer
	title   *color.Color
	ok      *color.Color
	warn    *color.Color
	created *color.Color
	skipped *color.Color
}

func newSummary(w io.Writer, noColor bool) *summary {
	s := &summary{
		w:       w,
		title:   color.New(color.FgCyan, color.Bold),
		ok:      color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		created: color.New(color.FgGreen),
		skipped: color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{s.title, s.ok, s.warn, s.created, s.skipped} {
			c.DisableColor()
		}
	}
	return s
}

// Print writes one block per report.
func (s *summary) Print(runID string, seed uint64, reports []*domain.PhaseReport) {
	s.title.Fprintf(s.w, "Seed run %s (seed %d)\n", runID, seed)

	for _, r := range reports {
		status := s.ok.Sprint("completed")
		if r.Interrupted {
			status = s.warn.Sprint("interrupted")
		}
		fmt.Fprintf(s.w, "\n%s %s in %s\n", s.title.Sprint(r.Phase), status, r.Duration.Round(1e6))

		tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  TABLE\tCREATED\tUPDATED\tSKIPPED")
		for _, name := range r.Names() {
			c := r.Get(name)
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", name,
				s.created.Sprint(c.Created), c.Updated, s.skipped.Sprint(c.Skipped))
		}
		t := r.Totals()
		fmt.Fprintf(tw, "  total\t%d\t%d\t%d\n", t.Created, t.Updated, t.Skipped)
		_ = tw.Flush()
	}
}

// PrintStats writes the row counts of a dry run.
func (s *summary) PrintStats(stats memory.Stats) {
	s.title.Fprintln(s.w, "\nIn-memory store")
	names := make([]string, 0, len(stats))
	for n := range stats {
		names = append(names, n)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(tw, "  %s\t%d\n", n, stats[n])
	}
	_ = tw.Flush()
}

// PrintHealth writes one line per checked dependency.
func (s *summary) PrintHealth(report health.Report) {
	s.title.Fprintln(s.w, "Dependencies")
	if len(report.Checks) == 0 {
		fmt.Fprintln(s.w, "  none configured")
		return
	}
	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	for _, n := range report.Names() {
		c := report.Checks[n]
		status := s.ok.Sprint(c.Status)
		if c.Status == health.StatusDown {
			status = s.warn.Sprint(c.Status)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", n, status, c.Duration.Round(1e6), c.Error)
	}
	_ = tw.Flush()
}
