package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
)

const maxEventEntries = 500

// EventStreamModel displays a scrollable stream of bus events. It follows
// the tail until the user scrolls up.
type EventStreamModel struct {
	Viewport viewport.Model
	events   []domain.Event
	filter   domain.EventType // prefix; empty = show all
	ready    bool
	atBottom bool
}

// NewEventStream creates an event stream viewer.
func NewEventStream() EventStreamModel {
	return EventStreamModel{atBottom: true}
}

// SetSize sets the viewport dimensions.
func (m *EventStreamModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// SetFilter sets the event type prefix filter.
func (m *EventStreamModel) SetFilter(prefix domain.EventType) {
	m.filter = prefix
	m.refreshContent()
}

// AddEvent appends an event, dropping the oldest past maxEventEntries.
func (m *EventStreamModel) AddEvent(event domain.Event) {
	m.events = append(m.events, event)
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Update handles viewport scrolling.
func (m EventStreamModel) Update(msg tea.Msg) (EventStreamModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// EventCount returns the total number of events held.
func (m EventStreamModel) EventCount() int {
	return len(m.events)
}

// FilteredCount returns the number of events matching the current filter.
func (m EventStreamModel) FilteredCount() int {
	n := 0
	for _, evt := range m.events {
		if m.matches(evt) {
			n++
		}
	}
	return n
}

// View renders the event stream.
func (m EventStreamModel) View() string {
	if !m.ready {
		return ""
	}
	return m.Viewport.View()
}

func (m EventStreamModel) matches(evt domain.Event) bool {
	return m.filter == "" || strings.HasPrefix(string(evt.Type), string(m.filter))
}

func (m *EventStreamModel) refreshContent() {
	if !m.ready {
		return
	}
	if len(m.events) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  Waiting for events" + theme.SymbolEllipsis))
		return
	}

	var sb strings.Builder
	for _, evt := range m.events {
		if !m.matches(evt) {
			continue
		}
		eventType := string(evt.Type)
		padded := fmt.Sprintf("%-22s", eventType)

		var styled string
		switch {
		case strings.HasPrefix(eventType, "cycle."):
			styled = theme.TextInfo.Render(padded)
		case strings.HasPrefix(eventType, "display."):
			styled = theme.TextAccent.Render(padded)
		case strings.HasPrefix(eventType, "link."), strings.HasPrefix(eventType, "settings."):
			styled = theme.TextWarning.Render(padded)
		default:
			styled = theme.TextMuted.Render(padded)
		}

		fmt.Fprintf(&sb, "  %s  %s %s\n",
			theme.Dim.Render(evt.Timestamp.Format("15:04:05")),
			styled,
			theme.TextMuted.Render(SummarizeEvent(evt)))
	}
	m.Viewport.SetContent(sb.String())
}

// SummarizeEvent picks the most telling field out of an event payload.
func SummarizeEvent(evt domain.Event) string {
	if len(evt.Payload) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(evt.Payload, &fields); err != nil {
		return ""
	}
	for _, key := range []string{"message", "url", "title", "action", "id"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	if v, ok := fields["totalIterationCount"].(float64); ok {
		return fmt.Sprintf("iterations=%d", int(v))
	}
	return ""
}
