package tabs

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clickloop/internal/domain"
)

func TestMaskSecrets(t *testing.T) {
	in := strings.Join([]string{
		"llm:",
		"  provider:",
		"    api_key: sk-live",
		"    model: gpt-4o-mini",
		"gateway:",
		"  auth:",
		"    tokens:",
		"      - token: abc",
		"        name: laptop",
		"    empty_token:",
		"  api_key: \"\"",
	}, "\n")

	out := MaskSecrets(in)
	assert.NotContains(t, out, "sk-live")
	assert.NotContains(t, out, "abc")
	assert.Contains(t, out, "api_key: ****")
	assert.Contains(t, out, "- token: ****")
	assert.Contains(t, out, "model: gpt-4o-mini")
	assert.Contains(t, out, `api_key: ""`)
}

func TestLogsNewestFirstAndCapped(t *testing.T) {
	m := NewLogs()
	m.SetSize(80, 20)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < domain.MaxLogEntries+5; i++ {
		m.AddEntry(domain.NewLogEntry(base.Add(time.Duration(i)*time.Second), domain.LogLoad, fmt.Sprintf("visit %d", i)))
	}
	assert.Equal(t, domain.MaxLogEntries, m.Len())
	assert.Equal(t, fmt.Sprintf("visit %d", domain.MaxLogEntries+4), m.entries[0].Message)
}

func TestLogsFilter(t *testing.T) {
	m := NewLogs()
	m.SetSize(80, 20)
	now := time.Now()
	m.SetEntries([]domain.LogEntry{
		domain.NewLogEntry(now, domain.LogError, "failed"),
		domain.NewLogEntry(now, domain.LogLoad, "loaded"),
		domain.NewLogEntry(now, domain.LogLoad, "loaded again"),
	})

	assert.True(t, m.FilterBar.HandleShortcut("l"))
	m.refreshContent()
	assert.Equal(t, 3, m.FilterBar.Total)
	assert.Equal(t, 2, m.FilterBar.Filtered)

	assert.True(t, m.FilterBar.HandleShortcut("a"))
	m.refreshContent()
	assert.Equal(t, 3, m.FilterBar.Filtered)
}

func TestLinksSelected(t *testing.T) {
	m := NewLinks()
	m.SetSize(100, 10)
	_, ok := m.Selected()
	assert.False(t, ok)

	m.SetLinks([]domain.Link{
		{ID: "a", Title: "A", URL: "https://a.example", IntervalSec: 5, Enabled: true},
		{ID: "b", Title: "B", URL: "https://b.example", IntervalSec: 5},
	})
	m.Table.SetCursor(1)
	l, ok := m.Selected()
	assert.True(t, ok)
	assert.Equal(t, "b", l.ID)

	m.SetLinks(m.links[:1])
	l, ok = m.Selected()
	assert.True(t, ok)
	assert.Equal(t, "a", l.ID)
}

func TestPhaseLabel(t *testing.T) {
	run := domain.IdleRunState()
	assert.Contains(t, PhaseLabel(run), "IDLE")
	run.IsRunning = true
	assert.Contains(t, PhaseLabel(run), "RUNNING")
	run.IsPaused = true
	assert.Contains(t, PhaseLabel(run), "PAUSED")
}
