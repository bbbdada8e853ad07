package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"clickloop/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "s"
	Desc string // e.g. "Start"
}

// StatusBarModel renders a bottom status bar: key hints on the left,
// run state and a transient notice on the right.
type StatusBarModel struct {
	Hints  []KeyHint
	State  string // e.g. "RUNNING"
	Notice string
	IsErr  bool // render Notice as an error
	width  int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	hints := make([]string, 0, len(m.Hints))
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right []string
	if m.Notice != "" {
		if m.IsErr {
			right = append(right, theme.TextError.Render(m.Notice))
		} else {
			right = append(right, theme.TextInfo.Render(m.Notice))
		}
	}
	if m.State != "" {
		right = append(right, theme.Bold.Render(m.State))
	}
	r := strings.Join(right, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + r)
}
