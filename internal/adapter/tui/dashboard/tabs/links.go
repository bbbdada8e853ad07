package tabs

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
)

// LinksModel lists the cycle links with a movable cursor.
type LinksModel struct {
	Table  table.Model
	links  []domain.Link
	active string // link on display
	width  int
	height int
}

// NewLinks creates a links tab.
func NewLinks() LinksModel {
	t := table.New(
		table.WithColumns(linkColumns(80)),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = theme.Selected
	t.SetStyles(styles)
	return LinksModel{Table: t}
}

func linkColumns(width int) []table.Column {
	urlW := width - 4 - 24 - 9 - 7 - 4 - 10
	if urlW < 20 {
		urlW = 20
	}
	return []table.Column{
		{Title: "", Width: 4},
		{Title: "Title", Width: 24},
		{Title: "URL", Width: urlW},
		{Title: "Interval", Width: 9},
		{Title: "Iter", Width: 7},
	}
}

// SetSize sets dimensions.
func (m *LinksModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.Table.SetColumns(linkColumns(w))
	m.Table.SetWidth(w)
	m.Table.SetHeight(theme.Clamp(h-2, 3, h))
}

// SetLinks replaces the listed links, keeping the cursor in range.
func (m *LinksModel) SetLinks(links []domain.Link) {
	m.links = links
	m.refresh()
	if c := m.Table.Cursor(); c >= len(links) && len(links) > 0 {
		m.Table.SetCursor(len(links) - 1)
	}
}

// SetActive marks the link currently on display.
func (m *LinksModel) SetActive(id string) {
	m.active = id
	m.refresh()
}

// Selected returns the link under the cursor.
func (m LinksModel) Selected() (domain.Link, bool) {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.links) {
		return domain.Link{}, false
	}
	return m.links[i], true
}

func (m *LinksModel) refresh() {
	rows := make([]table.Row, 0, len(m.links))
	for _, l := range m.links {
		state := theme.SymbolSuccess
		if !l.Enabled {
			state = "-"
		}
		if l.ID == m.active {
			state = theme.SymbolPlay
		}
		iter := "∞"
		if l.Iterations > 0 {
			iter = fmt.Sprintf("%d", l.Iterations)
		}
		rows = append(rows, table.Row{state, l.Title, l.URL, fmt.Sprintf("%ds", l.IntervalSec), iter})
	}
	m.Table.SetRows(rows)
}

// Update moves the cursor.
func (m LinksModel) Update(msg tea.Msg) (LinksModel, tea.Cmd) {
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// View renders the links table.
func (m LinksModel) View() string {
	if len(m.links) == 0 {
		return theme.TextMuted.Render("  No links yet. Add one with: clickloop link add <url>")
	}
	return m.Table.View() + "\n" +
		theme.Dim.Render("  enter: loop this link  space: enable/disable")
}
