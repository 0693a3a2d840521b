// Package render turns accumulated answer text into terminal-formatted markdown.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StylePlain = "notty"
)

// InsightLabel prefixes block quotes, which answers use for callouts.
const InsightLabel = "Insight: "

// Markdown renders markdown with glamour. Block quotes are restyled as an
// accented insight callout.
type Markdown struct {
	tr    *glamour.TermRenderer
	style string
	width int
}

// New builds a renderer for the named glamour style wrapped at width columns.
// "auto" picks dark or light from the terminal background.
func New(style string, width int) (*Markdown, error) {
	if style == "" || style == StyleAuto {
		style = StyleDark
		if !lipgloss.HasDarkBackground() {
			style = StyleLight
		}
	}
	base, ok := styles.DefaultStyles[style]
	if !ok {
		return nil, fmt.Errorf("unknown markdown style %q", style)
	}
	if width < 20 {
		width = 20
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStyles(withInsightCallout(*base, style)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{tr: tr, style: style, width: width}, nil
}

// Resize returns a renderer with the same style at a new width.
func (m *Markdown) Resize(width int) (*Markdown, error) {
	if width == m.width {
		return m, nil
	}
	return New(m.style, width)
}

func (m *Markdown) Render(text string) (string, error) {
	out, err := m.tr.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func withInsightCallout(cfg ansi.StyleConfig, style string) ansi.StyleConfig {
	accent := "#B39DDB"
	if style == StyleLight {
		accent = "#7E57C2"
	}
	indent := uint(1)
	token := "▌ "
	italic := true

	cfg.BlockQuote = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Prefix: InsightLabel,
			Italic: &italic,
		},
		Indent:      &indent,
		IndentToken: &token,
	}
	if style != StylePlain && style != styles.AsciiStyle {
		cfg.BlockQuote.Color = &accent
	}
	return cfg
}

// Resizable is a Markdown renderer whose wrap width can change while other
// goroutines render with it.
type Resizable struct {
	mu sync.RWMutex
	md *Markdown
}

func NewResizable(style string, width int) (*Resizable, error) {
	md, err := New(style, width)
	if err != nil {
		return nil, err
	}
	return &Resizable{md: md}, nil
}

func (r *Resizable) SetWidth(width int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	md, err := r.md.Resize(width)
	if err != nil {
		return err
	}
	r.md = md
	return nil
}

func (r *Resizable) Render(text string) (string, error) {
	r.mu.RLock()
	md := r.md
	r.mu.RUnlock()
	return md.Render(text)
}
