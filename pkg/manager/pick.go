package manager

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPickCancelled is returned by RunPicker when the user quits without
// choosing a host.
var ErrPickCancelled = errors.New("pick cancelled")

// PickOptions controls the fast host picker.
type PickOptions struct {
	InitialQuery string
	MaxResults   int
	Theme        Theme

	// Recents are listed first, most recent first, while the query is empty.
	Recents []string
}

// RunPicker shows an interactive fuzzy picker over the hosts on the marker
// lines and returns the chosen host.
func RunPicker(lines []FastHostLine, opts PickOptions) (string, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultPickMaxResults
	}
	m := newPickModel(lines, opts)
	if len(m.candidates) == 0 {
		return "", errors.New("no fast hosts to pick from")
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return "", err
	}
	pm, ok := final.(pickModel)
	if !ok || pm.chosen == "" {
		return "", ErrPickCancelled
	}
	return pm.chosen, nil
}

type pickModel struct {
	input      textinput.Model
	candidates []candidate
	filtered   []candidate
	selected   int
	scroll     int
	maxResults int
	recent     map[string]int

	width  int
	height int
	theme  Theme

	chosen   string
	quitting bool
}

func newPickModel(lines []FastHostLine, opts PickOptions) pickModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search fast hosts..."
	ti.CharLimit = 256
	ti.PromptStyle = ti.PromptStyle.Bold(true)
	ti.SetValue(strings.TrimSpace(opts.InitialQuery))
	ti.Focus()

	m := pickModel{
		input:      ti,
		candidates: buildCandidates(lines),
		maxResults: opts.MaxResults,
		theme:      opts.Theme,
		recent:     make(map[string]int, len(opts.Recents)),
	}
	for i, h := range opts.Recents {
		if _, ok := m.recent[h]; !ok {
			m.recent[h] = i
		}
	}
	if m.maxResults <= 0 {
		m.maxResults = defaultPickMaxResults
	}
	m.recomputeFilter()
	return m
}

func (m pickModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if c := m.current(); c != nil {
				m.chosen = c.Host
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		case "up", "ctrl+p", "ctrl+k":
			m.move(-1)
			return m, nil
		case "down", "ctrl+n", "ctrl+j", "tab":
			m.move(1)
			return m, nil
		case "pgup":
			m.move(-m.visibleRows())
			return m, nil
		case "pgdown":
			m.move(m.visibleRows())
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.recomputeFilter()
	}
	return m, cmd
}

func (m *pickModel) recomputeFilter() {
	m.filtered = rankMatches(m.candidates, m.input.Value())
	if strings.TrimSpace(m.input.Value()) == "" && len(m.recent) > 0 {
		sort.SliceStable(m.filtered, func(i, j int) bool {
			ri, iok := m.recent[m.filtered[i].Host]
			rj, jok := m.recent[m.filtered[j].Host]
			if iok != jok {
				return iok
			}
			return iok && ri < rj
		})
	}
	if m.selected >= len(m.filtered) {
		m.selected = len(m.filtered) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.scroll = 0
	m.clampScroll()
}

func (m *pickModel) current() *candidate {
	if len(m.filtered) == 0 || m.selected < 0 || m.selected >= len(m.filtered) {
		return nil
	}
	return &m.filtered[m.selected]
}

func (m *pickModel) move(delta int) {
	if len(m.filtered) == 0 {
		return
	}
	m.selected = max(0, min(len(m.filtered)-1, m.selected+delta))
	m.clampScroll()
}

// visibleRows is the number of list rows that fit: max_results, further
// bounded by the window height minus header, input and footer.
func (m *pickModel) visibleRows() int {
	rows := m.maxResults
	if m.height > 0 {
		rows = min(rows, m.height-4)
	}
	return max(1, rows)
}

func (m *pickModel) clampScroll() {
	rows := m.visibleRows()
	if m.selected < m.scroll {
		m.scroll = m.selected
	}
	if m.selected >= m.scroll+rows {
		m.scroll = m.selected - rows + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m pickModel) View() string {
	if m.quitting {
		return ""
	}
	th := m.theme
	var b strings.Builder

	b.WriteString(th.Paint(th.Header, "ssh-fast pick"))
	b.WriteString(th.Paint(th.Dim, "  enter connect · esc cancel · ↑/↓ move"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if len(m.filtered) == 0 {
		b.WriteString(th.Paint(th.Warn, "  no fast host matches"))
		b.WriteString("\n")
	}
	end := min(len(m.filtered), m.scroll+m.visibleRows())
	for i := m.scroll; i < end; i++ {
		c := m.filtered[i]
		line := c.Display
		if m.width > 4 {
			line = truncate(line, m.width-2)
		}
		if i == m.selected {
			b.WriteString(th.Paint(th.Accent, "> "+line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString(th.Paint(th.Dim, fmt.Sprintf("%d/%d fast hosts", len(m.filtered), len(m.candidates))))
	return b.String()
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
