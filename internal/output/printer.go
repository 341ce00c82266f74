// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output formats CLI status lines, summary tables and fetch
// progress.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Printer writes status lines. Info, Success and Print go to out; Warning
// and Error go to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// NewPrinter returns a Printer on stdout and stderr.
func NewPrinter(useColors, quiet bool) *Printer {
	return NewPrinterWithWriters(os.Stdout, os.Stderr, useColors, quiet)
}

// NewPrinterWithWriters returns a Printer on the given writers.
func NewPrinterWithWriters(out, err io.Writer, useColors, quiet bool) *Printer {
	return &Printer{out: out, err: err, useColors: useColors, quiet: quiet}
}

// ResolveColors reports whether colored output should be used. NO_COLOR
// and TERM=dumb disable it.
func ResolveColors(disabled bool) bool {
	if disabled {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// Out returns the writer for regular output.
func (p *Printer) Out() io.Writer { return p.out }

// IsQuiet reports whether non-error output is suppressed.
func (p *Printer) IsQuiet() bool { return p.quiet }

func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

func (p *Printer) Warning(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error is printed even in quiet mode.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

func (p *Printer) Print(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints a title with an underline.
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", strings.Repeat("─", len([]rune(title))))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
	}
}

// Flag renders an accepted marker.
func (p *Printer) Flag(accepted bool) string {
	if !p.useColors {
		if accepted {
			return "yes"
		}
		return "no"
	}
	if accepted {
		return color.GreenString("●")
	}
	return color.RedString("○")
}
