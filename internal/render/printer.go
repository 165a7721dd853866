package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// Printer writes markdown to a terminal, styled by glamour unless raw output
// was requested.
type Printer struct {
	w        io.Writer
	renderer *glamour.TermRenderer
}

// NewPrinter returns a printer writing to w. With raw set the markdown is
// written unchanged.
func NewPrinter(w io.Writer, raw bool) (*Printer, error) {
	p := &Printer{w: w}
	if raw {
		return p, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	p.renderer = r
	return p, nil
}

// Print renders and writes a markdown document.
func (p *Printer) Print(markdown string) error {
	out := markdown
	if p.renderer != nil {
		rendered, err := p.renderer.Render(markdown)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		out = rendered
	}
	_, err := io.WriteString(p.w, out)
	return err
}
