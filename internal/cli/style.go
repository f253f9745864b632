package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	clrBrand  = lipgloss.Color("141")
	clrGreen  = lipgloss.Color("114")
	clrRed    = lipgloss.Color("203")
	clrYellow = lipgloss.Color("220")
	clrDim    = lipgloss.Color("245")
	clrWhite  = lipgloss.Color("255")
)

// styles renders CLI output. Styling is off unless the writer is a
// terminal and --json is unset; disabled styles emit raw text.
type styles struct {
	enabled bool

	Brand   lipgloss.Style
	Header  lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Dim     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

func newStyles(w io.Writer, jsonMode bool) styles {
	enabled := false
	if f, ok := w.(*os.File); ok && !jsonMode {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	if !enabled {
		return styles{}
	}
	return styles{
		enabled: true,
		Brand:   lipgloss.NewStyle().Bold(true).Foreground(clrBrand),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(clrBrand),
		Key:     lipgloss.NewStyle().Foreground(clrDim),
		Value:   lipgloss.NewStyle().Foreground(clrWhite),
		Dim:     lipgloss.NewStyle().Foreground(clrDim),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(clrYellow),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(clrRed),
		Success: lipgloss.NewStyle().Foreground(clrGreen),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

func (s styles) banner() string { return s.render(s.Brand, "elevenlabs-mcp") }
func (s styles) sectionHeader(t string) string { return s.render(s.Header, t) }
func (s styles) dim(text string) string { return s.render(s.Dim, text) }
func (s styles) success(text string) string { return s.render(s.Success, text) }
func (s styles) errPrefix() string { return s.render(s.Error, "ERROR:") }
func (s styles) warnPrefix() string { return s.render(s.Warning, "WARNING:") }

// kv formats "  key:  value" with the key padded to a fixed column wide
// enough for dotted config keys.
func (s styles) kv(key, value string) string {
	return fmt.Sprintf("  %s %s", s.render(s.Key, fmt.Sprintf("%-28s", key+":")), s.render(s.Value, value))
}

// stat formats "label=value", as in "removed=3".
func (s styles) stat(label string, value interface{}) string {
	return s.render(s.Dim, label) + "=" + s.render(s.Value, fmt.Sprint(value))
}

func (s styles) separator(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.render(s.Dim, strings.Repeat("─", width))
}
