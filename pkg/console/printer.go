package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorInfo    = lipgloss.Color("#3B82F6")
	colorSuccess = lipgloss.Color("#00FF99")
	colorDanger  = lipgloss.Color("#FF0055")
	colorWarning = lipgloss.Color("#F59E0B")
	colorItem    = lipgloss.Color("#22D3EE")
)

// Printer writes colored status lines for humans.
// Styles are bound to the output's renderer, so redirected output stays plain.
type Printer struct {
	out     io.Writer
	info    lipgloss.Style
	success lipgloss.Style
	danger  lipgloss.Style
	warning lipgloss.Style
	item    lipgloss.Style
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		info:    r.NewStyle().Foreground(colorInfo),
		success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		danger:  r.NewStyle().Foreground(colorDanger).Bold(true),
		warning: r.NewStyle().Foreground(colorWarning),
		item:    r.NewStyle().Foreground(colorItem),
	}
}

func (p *Printer) line(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...interface{}) {
	p.line(p.info, format, args...)
}

func (p *Printer) Successf(format string, args ...interface{}) {
	p.line(p.success, format, args...)
}

func (p *Printer) Errorf(format string, args ...interface{}) {
	p.line(p.danger, format, args...)
}

func (p *Printer) Warnf(format string, args ...interface{}) {
	p.line(p.warning, format, args...)
}

// Itemf prints an indented list entry.
func (p *Printer) Itemf(format string, args ...interface{}) {
	p.line(p.item, "  "+format, args...)
}

// Discard is a Printer that drops everything.
var Discard = NewPrinter(io.Discard)
