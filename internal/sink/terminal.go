package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/smazurov/ledsim/internal/strip"
)

// Terminal draws the strip as one line of background-colored cells,
// redrawn in place with a carriage return.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *lipgloss.Renderer
	cell     string
	styles   map[strip.Color]lipgloss.Style
	drawn    bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithColorProfile forces a color profile instead of detecting it from w.
func WithColorProfile(p termenv.Profile) TerminalOption {
	return func(t *Terminal) { t.renderer.SetColorProfile(p) }
}

// WithCell sets the text drawn for each LED. The default is two spaces.
func WithCell(s string) TerminalOption {
	return func(t *Terminal) { t.cell = s }
}

// NewTerminal draws to w.
func NewTerminal(w io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		cell:     "  ",
		styles:   make(map[strip.Color]lipgloss.Style),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) Name() string { return "terminal" }

// Render returns the cells for colors without writing them.
func (t *Terminal) Render(colors []strip.Color) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.render(colors)
}

func (t *Terminal) render(colors []strip.Color) string {
	var sb strings.Builder
	for _, c := range colors {
		style, ok := t.styles[c]
		if !ok {
			style = t.renderer.NewStyle().Background(lipgloss.Color(c.Hex()))
			t.styles[c] = style
		}
		sb.WriteString(style.Render(t.cell))
	}
	return sb.String()
}

// SetLEDs implements Sink.
func (t *Terminal) SetLEDs(colors []strip.Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drawn = true
	_, err := fmt.Fprint(t.w, "\r"+t.render(colors))
	return err
}

// Close ends the line so later output starts on a fresh one.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.drawn {
		return nil
	}
	_, err := fmt.Fprintln(t.w)
	return err
}
