// Package output provides output formatting interfaces.
// This package produces human and machine-readable outputs.
package output

import (
	"fmt"
	"io"
	"time"

	"pwnet/core/results"
	"pwnet/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given result
	Render(w io.Writer, result *results.Result) error
}

// ForFormat returns the formatter for a format name.
func ForFormat(f Format) (Formatter, error) {
	switch f {
	case FormatCLI:
		return &CLIFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, errors.Newf(errors.TypeConfigData, "unknown output format %q", f)
	}
}

// CLIFormatter renders a human-readable summary table.
type CLIFormatter struct {
	// Elapsed, when set, is reported alongside the status line.
	Elapsed time.Duration

	// ShowSchedule includes the build schedule section.
	ShowSchedule bool
}

// Format returns the format type
func (f *CLIFormatter) Format() Format { return FormatCLI }

// Render produces output for the given result
func (f *CLIFormatter) Render(w io.Writer, res *results.Result) error {
	fmt.Fprintf(w, "Status:    %s\n", res.Status)
	fmt.Fprintf(w, "Objective: %.2f\n", res.Objective)
	if f.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:   %s\n", f.Elapsed.Round(time.Millisecond))
	}

	if res.Costs != nil {
		fmt.Fprintln(w, "\nCost summary:")
		for _, line := range res.Costs.Lines {
			fmt.Fprintf(w, "  %-28s %14s\n", line.Name, line.Amount.StringFixed(2))
		}
		for _, line := range res.Costs.Credits {
			fmt.Fprintf(w, "  %-28s %14s (credit)\n", line.Name, line.Amount.StringFixed(2))
		}
		fmt.Fprintf(w, "  %-28s %14s\n", "total", res.Costs.Total.StringFixed(2))
		fmt.Fprintf(w, "  %-28s %14s\n", "net", res.Costs.Net.StringFixed(2))
	}

	if f.ShowSchedule && len(res.BuildSchedule) > 0 {
		fmt.Fprintln(w, "\nBuild schedule:")
		for _, ev := range res.BuildSchedule {
			if ev.Start == "" {
				fmt.Fprintf(w, "  %-10s %-16s increment %-6s (capacity never exceeded)\n",
					ev.Kind, ev.Asset, ev.Increment)
				continue
			}
			fmt.Fprintf(w, "  %-10s %-16s increment %-6s start %s (needed by %s, lead %d)\n",
				ev.Kind, ev.Asset, ev.Increment, ev.Start, ev.FirstNeeded, ev.LeadPeriods)
		}
	}

	if res.Hydraulics != nil && len(res.Hydraulics.Segments) > 0 {
		fmt.Fprintf(w, "\nPumping cost: %.2f over %d segments\n",
			res.Hydraulics.PumpingCost, len(res.Hydraulics.Segments))
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "\nWarning: %s\n", warning)
	}
	return nil
}

// JSONFormatter renders the machine-readable export.
type JSONFormatter struct{}

// Format returns the format type
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render produces output for the given result
func (f *JSONFormatter) Render(w io.Writer, res *results.Result) error {
	return res.WriteJSON(w)
}
