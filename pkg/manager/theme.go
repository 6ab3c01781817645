package manager

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Theme provides optional colorized rendering for ssh-fast output.
// All hooks are safe to call when theming is disabled; they fall back to
// plain strings.
//
// Resolution of the color setting:
// - "never": plain text
// - "always": colors even when the output is piped
// - "auto" (default): colors when out is a terminal and NO_COLOR is unset
type Theme struct {
	Enabled bool

	Header  lipgloss.Style
	Accent  lipgloss.Style
	Dim     lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
}

// NewTheme builds a Theme for writing to out.
func NewTheme(color string, out io.Writer) Theme {
	r := lipgloss.NewRenderer(out)
	enabled := false
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "always":
		enabled = true
		r.SetColorProfile(termenv.ANSI256)
	case "never":
	default:
		enabled = os.Getenv("NO_COLOR") == "" && isTerminal(out)
	}
	if !enabled {
		r.SetColorProfile(termenv.Ascii)
	}

	return Theme{
		Enabled: enabled,
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("183")),
		Accent:  r.NewStyle().Foreground(lipgloss.Color("116")),
		Dim:     r.NewStyle().Faint(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("203")),
		Success: r.NewStyle().Foreground(lipgloss.Color("114")),
		Warn:    r.NewStyle().Foreground(lipgloss.Color("221")),
	}
}

// Paint renders s with style when the theme is enabled.
func (t Theme) Paint(style lipgloss.Style, s string) string {
	if !t.Enabled || s == "" {
		return s
	}
	return style.Render(s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
