// Package terminal writes command output, styled when it goes to a terminal.
package terminal

import (
	"fmt"
	"io"
	"os"

	gloss "github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Printer writes command output. Styles are only applied when the output is a
// terminal, so piped output stays plain.
type Printer struct {
	out    io.Writer
	styled bool
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styled: IsTerminal(out)}
}

// Stdout returns a Printer for standard output.
func Stdout() *Printer {
	return NewPrinter(os.Stdout)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Styled reports whether output is styled.
func (p *Printer) Styled() bool {
	return p.styled
}

func (p *Printer) render(style gloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

// Plain writes text followed by a newline.
func (p *Printer) Plain(text string) {
	fmt.Fprintln(p.out, text)
}

// Raw writes text as-is.
func (p *Printer) Raw(text string) {
	fmt.Fprint(p.out, text)
}

// Ok writes a success message.
func (p *Printer) Ok(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(okStyle, fmt.Sprintf(format, args...)))
}

// Warn writes a warning.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(warnStyle, fmt.Sprintf(format, args...)))
}

// Fail writes a failure message.
func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(failStyle, fmt.Sprintf(format, args...)))
}

// Field writes a key and value pair, aligning keys to width.
func (p *Printer) Field(key string, width int, value any) {
	label := fmt.Sprintf("%-*s", width, key)
	fmt.Fprintf(p.out, "%s %v\n", p.render(keyStyle, label), value)
}

// Header writes a section header.
func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, p.render(headerStyle, text))
}

// Dim writes a line of secondary text.
func (p *Printer) Dim(text string) {
	fmt.Fprintln(p.out, p.render(grayStyle, text))
}
