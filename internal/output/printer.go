// Package output formats admin command output for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/ppiankov/realitycheck/internal/model"
)

// Printer writes status lines, optionally colored
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// NewPrinter creates a printer on stdout/stderr. Colors are disabled when
// NO_COLOR is set or the terminal is dumb.
func NewPrinter(useColors, quiet bool) *Printer {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		useColors = false
	}
	return &Printer{out: os.Stdout, err: os.Stderr, useColors: useColors, quiet: quiet}
}

// NewPrinterTo creates an uncolored printer on the given writers
func NewPrinterTo(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

// Out returns the stdout writer
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error is printed even in quiet mode
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Header prints a section title with an underline
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", repeatChar('─', len([]rune(title))))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, repeatChar('-', len([]rune(title))))
	}
}

// RunSummary prints the counts of a finished run
func (p *Printer) RunSummary(s model.RunSummary) {
	p.Header("Run summary")
	p.Info("  Articles fetched:   %d", s.ArticlesFetched)
	p.Info("  Articles processed: %d", s.ArticlesProcessed)
	p.Info("  Facts extracted:    %d", s.FactsExtracted)
	p.Info("  Candidates:         %d (%d rejected)", s.Candidates, s.Rejected)
	p.Info("  Guidance used:      %t", s.GuidanceUsed)
	p.Info("  Duration:           %s", s.Duration.Round(100*time.Millisecond))

	switch {
	case s.ArticlesFetched == 0:
		p.Warning("No articles found")
	case s.ClaimsPublished == 0:
		p.Warning("No claims passed validation")
	default:
		p.Success("%d claims saved to %s", s.ClaimsPublished, s.Destination)
	}
}

func repeatChar(char rune, count int) string {
	result := make([]rune, count)
	for i := range result {
		result[i] = char
	}
	return string(result)
}
