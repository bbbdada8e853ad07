package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/adapter/store"
	"clickloop/internal/domain"
	"clickloop/internal/usecase/linkset"
)

type fakeCycle struct {
	mu     sync.Mutex
	state  domain.RunState
	starts []string
	stops  int
}

func (f *fakeCycle) Snapshot() domain.RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeCycle) Start(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, id)
	f.state.IsRunning = true
	return nil
}

func (f *fakeCycle) Pause(context.Context) {
	f.mu.Lock()
	f.state.IsPaused = true
	f.mu.Unlock()
}

func (f *fakeCycle) Resume(context.Context) {
	f.mu.Lock()
	f.state.IsPaused = false
	f.mu.Unlock()
}

func (f *fakeCycle) Stop(context.Context, domain.StopReason) {
	f.mu.Lock()
	f.stops++
	f.state = domain.IdleRunState()
	f.mu.Unlock()
}

func newTestModel(t *testing.T) (*DashboardModel, *fakeCycle, *linkset.Manager) {
	t.Helper()
	kv, err := store.NewFileKV(t.TempDir())
	require.NoError(t, err)
	st := store.New(kv)
	cyc := &fakeCycle{state: domain.IdleRunState()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := linkset.NewManager(linkset.Stores{Links: st, Settings: st, Logs: st}, cyc, nil, nil, nil, logger)

	m := NewDashboardModel(DashboardDeps{Cycle: cyc, Links: mgr, DisplayName: "none"})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, cyc, mgr
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func run(t *testing.T, m *DashboardModel, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestDashboardTabSwitching(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, TabOverview, m.activeTab)

	m.Update(key("3"))
	assert.Equal(t, TabLogs, m.activeTab)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabEvents, m.activeTab)

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabLinks, m.activeTab)
}

func TestDashboardCycleKeys(t *testing.T) {
	m, cyc, _ := newTestModel(t)

	_, cmd := m.Update(key("s"))
	run(t, m, cmd)
	assert.Equal(t, []string{""}, cyc.starts)
	assert.Equal(t, string(domain.PhaseRunning), m.statusBar.State)

	_, cmd = m.Update(key("p"))
	run(t, m, cmd)
	assert.True(t, cyc.Snapshot().IsPaused)
	assert.Equal(t, string(domain.PhasePaused), m.statusBar.State)

	_, cmd = m.Update(key("p"))
	run(t, m, cmd)
	assert.False(t, cyc.Snapshot().IsPaused)

	_, cmd = m.Update(key("x"))
	run(t, m, cmd)
	assert.Equal(t, 1, cyc.stops)
	assert.Equal(t, string(domain.PhaseIdle), m.statusBar.State)
}

func TestDashboardLinksTab(t *testing.T) {
	m, cyc, mgr := newTestModel(t)
	ctx := context.Background()
	l, err := mgr.Add(ctx, domain.Link{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)

	run(t, m, loadSnapshotCmd(m.deps))
	m.Update(key("2"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	run(t, m, cmd)
	got, err := mgr.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, m, cmd)
	assert.Equal(t, []string{l.ID}, cyc.starts)
}

func TestDashboardEvents(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(EventBusMsg{Event: domain.NewEvent(domain.EventLogAppended,
		domain.NewLogEntry(time.Now(), domain.LogError, "display failed"))})
	assert.Equal(t, 1, m.overview.Errors)
	assert.Equal(t, 1, m.logs.Len())
	assert.Equal(t, 1, m.tabBar.Tabs[TabLogs].Badge)

	m.Update(key("3"))
	assert.Equal(t, 0, m.tabBar.Tabs[TabLogs].Badge)

	state := domain.IdleRunState()
	state.IsRunning = true
	state.TotalIterationCount = 4
	m.Update(EventBusMsg{Event: domain.NewEvent(domain.EventCycleTick, state)})
	assert.Equal(t, 4, m.overview.Run.TotalIterationCount)
	assert.Equal(t, 1, m.overview.Opened)

	m.Update(EventBusMsg{Event: domain.NewEvent(domain.EventCycleStopped, map[string]string{"reason": "manual"})})
	assert.False(t, m.overview.Run.IsRunning)

	_, cmd := m.Update(EventBusMsg{Event: domain.NewEvent(domain.EventLinkAdded, domain.Link{ID: "x"})})
	assert.NotNil(t, cmd, "link events trigger a reload")

	assert.Equal(t, 4, m.events.Stream.EventCount())
}

func TestDashboardViewRenders(t *testing.T) {
	m, _, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "Overview")
	assert.Contains(t, out, "IDLE")
}
