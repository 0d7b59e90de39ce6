package agent

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const separator = "--------------------------------------------------------------------------------"

// Printer writes chat turns to a stream. On a terminal the header is coloured
// and markdown is rendered; otherwise output is plain text.
type Printer struct {
	out      io.Writer
	header   func(a ...any) string
	markdown *markdownRenderer
}

// NewPrinter returns a Printer for out, detecting whether out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{out: out, header: fmt.Sprint}

	file, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return p
	}

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.EnableColor()
	p.header = yellow.SprintFunc()

	width := 80
	if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 4 {
		width = w - 4
	}
	if renderer, err := newMarkdownRenderer(width); err == nil {
		p.markdown = renderer
	}
	return p
}

// PrintTurn writes "speaker (to recipient):" followed by the content.
func (p *Printer) PrintTurn(turn Turn) {
	if p == nil || p.out == nil {
		return
	}
	content := turn.Content
	if p.markdown != nil {
		content = strings.TrimRight(p.markdown.renderIfMarkdown(content), "\n")
	}
	fmt.Fprintf(p.out, "%s\n\n%s\n\n%s\n", p.header(fmt.Sprintf("%s (to %s):", turn.Speaker, turn.Recipient)), content, separator)
}

// PrintMessage writes a plain line.
func (p *Printer) PrintMessage(message string) {
	if p == nil || p.out == nil {
		return
	}
	fmt.Fprintln(p.out, message)
}
