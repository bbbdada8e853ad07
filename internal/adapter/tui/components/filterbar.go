package components

import (
	"fmt"
	"strings"

	"clickloop/internal/adapter/tui/theme"
)

// FilterOption defines a single filter choice.
type FilterOption struct {
	ID       string // event type prefix or log event type
	Label    string
	Shortcut string // single key
}

// FilterBarModel renders a horizontal filter bar with keyboard shortcuts.
// "a" always clears the filter.
type FilterBarModel struct {
	Options  []FilterOption
	Active   string // empty = show all
	Total    int
	Filtered int
	width    int
}

// NewFilterBar creates a filter bar with the given options.
func NewFilterBar(options []FilterOption) FilterBarModel {
	return FilterBarModel{Options: options}
}

// SetWidth updates the bar width.
func (m *FilterBarModel) SetWidth(w int) {
	m.width = w
}

// Toggle activates a filter. Calling with the same ID again clears the filter.
func (m *FilterBarModel) Toggle(id string) {
	if m.Active == id {
		m.Active = ""
		return
	}
	m.Active = id
}

// HandleShortcut reports whether key was consumed.
func (m *FilterBarModel) HandleShortcut(key string) bool {
	if key == "a" {
		m.Active = ""
		return true
	}
	for _, opt := range m.Options {
		if opt.Shortcut == key {
			m.Toggle(opt.ID)
			return true
		}
	}
	return false
}

// SetCounts updates the total and filtered counts.
func (m *FilterBarModel) SetCounts(total, filtered int) {
	m.Total = total
	m.Filtered = filtered
}

// View renders the filter bar.
func (m FilterBarModel) View() string {
	render := func(label string, on bool) string {
		if on {
			return theme.TextInfo.Render(label)
		}
		return theme.TextMuted.Render(label)
	}

	parts := []string{render("[a] All", m.Active == "")}
	for _, opt := range m.Options {
		parts = append(parts, render(fmt.Sprintf("[%s] %s", opt.Shortcut, opt.Label), m.Active == opt.ID))
	}

	bar := "  Filter: " + strings.Join(parts, "  ")
	if m.Total > 0 {
		bar += theme.Dim.Render(fmt.Sprintf("  Showing %d/%d", m.Filtered, m.Total))
	}
	return bar
}
