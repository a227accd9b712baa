package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles holds the status line styles of interactive output. lipgloss
// drops the colors when the output is not a terminal.
type styles struct {
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Muted lipgloss.Style
	Title lipgloss.Style
}

func newStyles() *styles {
	return &styles{
		OK:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Title: lipgloss.NewStyle().Bold(true),
	}
}

func (s *styles) status(w io.Writer, style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintln(w, style.Render(fmt.Sprintf(format, args...)))
}
