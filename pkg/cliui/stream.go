package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// StreamPrinter writes a growing display text to a terminal as it arrives.
type StreamPrinter struct {
	w io.Writer

	mu      sync.Mutex
	printed string
}

// NewStreamPrinter returns a StreamPrinter writing to w.
func NewStreamPrinter(w io.Writer) *StreamPrinter {
	return &StreamPrinter{w: w}
}

// Update prints what text adds to the text printed so far. An empty text
// starts over silently; a text that replaces rather than extends the
// printed one is written on a new line.
func (p *StreamPrinter) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case text == p.printed:
		return
	case text == "":
	case strings.HasPrefix(text, p.printed):
		fmt.Fprint(p.w, text[len(p.printed):])
	default:
		fmt.Fprint(p.w, "\n"+text)
	}
	p.printed = text
}

// Printed returns the text printed so far.
func (p *StreamPrinter) Printed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed
}
