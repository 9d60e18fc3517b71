// Package output renders runs on the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// ColorMode represents color output mode.
type ColorMode int

const (
	// ColorAuto enables colors unless NO_COLOR is set or the terminal is dumb.
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on.
	ColorAlways
	// ColorNever forces colors off.
	ColorNever
)

// ParseColorMode parses "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides whether to color output.
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return os.Getenv("TERM") != "dumb"
	}
}

// Printer writes human-readable output. Data goes to out, diagnostics to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool

	// Widths cap the title and description columns, in terminal cells.
	TitleWidth       int
	DescriptionWidth int
}

// NewPrinter creates a printer over stdout and stderr.
func NewPrinter(mode ColorMode) *Printer {
	return NewPrinterWithWriters(os.Stdout, os.Stderr, ResolveColors(mode))
}

// NewPrinterWithWriters creates a printer over the given writers.
func NewPrinterWithWriters(out, err io.Writer, useColors bool) *Printer {
	return &Printer{
		out:              out,
		err:              err,
		useColors:        useColors,
		TitleWidth:       48,
		DescriptionWidth: 60,
	}
}

func (p *Printer) paint(attrs []color.Attribute, s string) string {
	if !p.useColors || s == "" {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// Info prints an informational message.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, p.paint([]color.Attribute{color.FgCyan}, fmt.Sprintf(format, args...)))
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		fmt.Fprintln(p.out, p.paint([]color.Attribute{color.FgGreen}, "✓ "+msg))
		return
	}
	fmt.Fprintln(p.out, "[OK] "+msg)
}

// Warning prints a warning to the error stream.
func (p *Printer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		fmt.Fprintln(p.err, p.paint([]color.Attribute{color.FgYellow}, "⚠ "+msg))
		return
	}
	fmt.Fprintln(p.err, "[WARN] "+msg)
}

// Error prints an error to the error stream.
func (p *Printer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		fmt.Fprintln(p.err, p.paint([]color.Attribute{color.FgRed}, "✗ "+msg))
		return
	}
	fmt.Fprintln(p.err, "[ERROR] "+msg)
}

// Header prints a section header underlined to its display width.
func (p *Printer) Header(title string) {
	rule := strings.Repeat("─", runewidth.StringWidth(title))
	if !p.useColors {
		rule = strings.Repeat("-", runewidth.StringWidth(title))
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", p.paint([]color.Attribute{color.Bold}, title), rule)
}

// truncate cuts s to width terminal cells, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// FormatMetric renders a metric with thousands separators, or "-" when
// the item has none.
func FormatMetric(m *int64) string {
	if m == nil {
		return "-"
	}
	s := strconv.FormatInt(*m, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
