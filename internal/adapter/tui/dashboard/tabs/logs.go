package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"clickloop/internal/adapter/tui/components"
	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
)

// LogsModel shows the activity log, newest first, with event type filtering.
type LogsModel struct {
	Viewport  viewport.Model
	FilterBar components.FilterBarModel
	entries   []domain.LogEntry // newest first
	ready     bool
	width     int
	height    int
}

// NewLogs creates a logs tab.
func NewLogs() LogsModel {
	return LogsModel{
		FilterBar: components.NewFilterBar([]components.FilterOption{
			{ID: string(domain.LogLoad), Label: "Load", Shortcut: "l"},
			{ID: string(domain.LogInfo), Label: "Info", Shortcut: "i"},
			{ID: string(domain.LogError), Label: "Error", Shortcut: "e"},
			{ID: string(domain.LogFinish), Label: "Finish", Shortcut: "f"},
		}),
	}
}

// SetSize sets dimensions. Reserve 1 line for the filter bar.
func (m *LogsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.FilterBar.SetWidth(w)
	viewH := theme.Clamp(h-1, 3, h)
	if !m.ready {
		m.Viewport = viewport.New(w, viewH)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = viewH
	}
	m.refreshContent()
}

// SetEntries replaces the log with entries, newest first.
func (m *LogsModel) SetEntries(entries []domain.LogEntry) {
	m.entries = append([]domain.LogEntry(nil), entries...)
	m.refreshContent()
}

// AddEntry prepends an entry, keeping at most MaxLogEntries.
func (m *LogsModel) AddEntry(entry domain.LogEntry) {
	m.entries = append([]domain.LogEntry{entry}, m.entries...)
	if len(m.entries) > domain.MaxLogEntries {
		m.entries = m.entries[:domain.MaxLogEntries]
	}
	m.refreshContent()
}

// Len returns the number of entries held.
func (m LogsModel) Len() int { return len(m.entries) }

// Update handles viewport scrolling and filter shortcuts.
func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyRunes {
		if m.FilterBar.HandleShortcut(string(keyMsg.Runes)) {
			m.refreshContent()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the filter bar + log viewport.
func (m LogsModel) View() string {
	if !m.ready {
		return ""
	}
	return m.FilterBar.View() + "\n" + m.Viewport.View()
}

func (m *LogsModel) refreshContent() {
	filtered := 0
	var sb strings.Builder
	for _, e := range m.entries {
		if m.FilterBar.Active != "" && string(e.EventType) != m.FilterBar.Active {
			continue
		}
		filtered++
		fmt.Fprintf(&sb, "  %s  %s  %s\n",
			theme.Dim.Render(e.Time().Format("15:04:05")), styleLogType(e.EventType), e.Message)
	}
	m.FilterBar.SetCounts(len(m.entries), filtered)

	if !m.ready {
		return
	}
	if len(m.entries) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  No log entries yet"))
		return
	}
	m.Viewport.SetContent(sb.String())
}

func styleLogType(t domain.LogEventType) string {
	label := fmt.Sprintf("%-6s", string(t))
	switch t {
	case domain.LogError:
		return theme.TextError.Render(label)
	case domain.LogStart, domain.LogResume:
		return theme.TextSuccess.Render(label)
	case domain.LogPause, domain.LogStop, domain.LogFinish:
		return theme.TextWarning.Render(label)
	case domain.LogLoad:
		return theme.TextInfo.Render(label)
	}
	return theme.TextMuted.Render(label)
}
