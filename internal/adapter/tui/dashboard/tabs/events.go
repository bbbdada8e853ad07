package tabs

import (
	tea "github.com/charmbracelet/bubbletea"

	"clickloop/internal/adapter/tui/components"
	"clickloop/internal/domain"
)

// EventsModel wraps the event stream component with a filter bar.
type EventsModel struct {
	Stream    components.EventStreamModel
	FilterBar components.FilterBarModel
}

// NewEvents creates an events tab.
func NewEvents() EventsModel {
	return EventsModel{
		Stream: components.NewEventStream(),
		FilterBar: components.NewFilterBar([]components.FilterOption{
			{ID: "cycle.", Label: "Cycle", Shortcut: "c"},
			{ID: "display.", Label: "Display", Shortcut: "d"},
			{ID: "link.", Label: "Links", Shortcut: "l"},
			{ID: "log.", Label: "Log", Shortcut: "g"},
		}),
	}
}

// SetSize sets dimensions. Reserve 1 line for the filter bar.
func (m *EventsModel) SetSize(w, h int) {
	m.FilterBar.SetWidth(w)
	m.Stream.SetSize(w, h-1)
}

// AddEvent appends an event and updates filter counts.
func (m *EventsModel) AddEvent(event domain.Event) {
	m.Stream.AddEvent(event)
	m.FilterBar.SetCounts(m.Stream.EventCount(), m.Stream.FilteredCount())
}

// Update handles viewport scrolling and filter shortcuts.
func (m EventsModel) Update(msg tea.Msg) (EventsModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyRunes {
		if m.FilterBar.HandleShortcut(string(keyMsg.Runes)) {
			m.Stream.SetFilter(domain.EventType(m.FilterBar.Active))
			m.FilterBar.SetCounts(m.Stream.EventCount(), m.Stream.FilteredCount())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.Stream, cmd = m.Stream.Update(msg)
	return m, cmd
}

// View renders the filter bar + event stream.
func (m EventsModel) View() string {
	return m.FilterBar.View() + "\n" + m.Stream.View()
}
