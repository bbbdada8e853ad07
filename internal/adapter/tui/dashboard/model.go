package dashboard

import (
	"context"
	"encoding/json"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clickloop/internal/adapter/tui/components"
	"clickloop/internal/adapter/tui/dashboard/tabs"
	"clickloop/internal/adapter/tui/uxerror"
	"clickloop/internal/domain"
	"clickloop/internal/usecase/linkset"
	"clickloop/internal/usecase/scheduling"
)

// Ensure *DashboardModel satisfies tea.Model.
var _ tea.Model = (*DashboardModel)(nil)

// DashboardTab identifies which tab is active.
type DashboardTab int

const (
	TabOverview DashboardTab = iota
	TabLinks
	TabLogs
	TabEvents
	TabConfig
)

// CycleControl is the part of the cycle scheduler the dashboard drives.
type CycleControl interface {
	Snapshot() domain.RunState
	Start(ctx context.Context, singleLinkID string) error
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Stop(ctx context.Context, reason domain.StopReason)
}

// NextRunLister reports upcoming autostart runs.
type NextRunLister interface {
	NextRuns() []scheduling.NextRun
}

// DashboardDeps are dependencies for the dashboard.
type DashboardDeps struct {
	Bus         domain.EventBus
	Cycle       CycleControl
	Links       *linkset.Manager
	Schedule    NextRunLister // can be nil
	DisplayName string
	Config      string // YAML string for the config viewer
}

// DashboardModel is the root Bubble Tea model for the control dashboard.
type DashboardModel struct {
	deps DashboardDeps

	activeTab DashboardTab
	tabBar    components.TabBarModel
	statusBar components.StatusBarModel

	overview tabs.OverviewModel
	links    tabs.LinksModel
	logs     tabs.LogsModel
	events   tabs.EventsModel
	config   tabs.ConfigModel

	width  int
	height int

	programSend func(tea.Msg)
	unsubscribe func()
}

// NewDashboardModel creates the dashboard model.
func NewDashboardModel(deps DashboardDeps) *DashboardModel {
	m := &DashboardModel{
		deps: deps,
		tabBar: components.NewTabBar([]components.Tab{
			{ID: "overview", Label: "Overview"},
			{ID: "links", Label: "Links"},
			{ID: "logs", Label: "Logs"},
			{ID: "events", Label: "Events"},
			{ID: "config", Label: "Config"},
		}),
		statusBar: components.NewStatusBar(),
		overview:  tabs.NewOverview(),
		links:     tabs.NewLinks(),
		logs:      tabs.NewLogs(),
		events:    tabs.NewEvents(),
		config:    tabs.NewConfig(),
	}
	m.overview.DisplayName = deps.DisplayName
	if deps.Config != "" {
		m.config.SetYAML(deps.Config)
	}
	m.statusBar.State = string(domain.PhaseIdle)
	return m
}

// SetProgramSender sets the function used to inject messages from the EventBus.
// Must be called before Run().
func (m *DashboardModel) SetProgramSender(send func(tea.Msg)) {
	m.programSend = send
}

// Init subscribes to the EventBus and loads the initial state.
func (m *DashboardModel) Init() tea.Cmd {
	if m.deps.Bus != nil && m.programSend != nil {
		m.unsubscribe = m.deps.Bus.SubscribeAll(func(_ context.Context, event domain.Event) {
			m.programSend(EventBusMsg{Event: event})
		})
	}
	return tea.Batch(loadSnapshotCmd(m.deps), tickCmd())
}

// Update handles messages.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}

	case EventBusMsg:
		return m, m.handleEvent(msg.Event)

	case SnapshotMsg:
		m.applySnapshot(msg)
		return m, nil

	case ActionResultMsg:
		if msg.Err != nil {
			m.notify(uxerror.Humanize(msg.Err).Title+": "+msg.Err.Error(), true)
		} else {
			m.notify(msg.Action, false)
		}
		m.syncRun(m.deps.Cycle.Snapshot())
		return m, nil

	case TickMsg:
		if m.deps.Schedule != nil {
			m.overview.NextRuns = m.deps.Schedule.NextRuns()
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabOverview:
		m.overview, cmd = m.overview.Update(msg)
	case TabLinks:
		m.links, cmd = m.links.Update(msg)
	case TabLogs:
		m.logs, cmd = m.logs.Update(msg)
	case TabEvents:
		m.events, cmd = m.events.Update(msg)
	case TabConfig:
		m.config, cmd = m.config.Update(msg)
	}
	return m, cmd
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, m.quit(), true
	case tea.KeyTab:
		m.tabBar.Next()
		m.activeTab = DashboardTab(m.tabBar.Active)
		return m, nil, true
	case tea.KeyShiftTab:
		m.tabBar.Prev()
		m.activeTab = DashboardTab(m.tabBar.Active)
		return m, nil, true
	case tea.KeyEnter:
		if m.activeTab == TabLinks {
			if l, ok := m.links.Selected(); ok {
				return m, actionCmd("Looping "+l.Title, func(ctx context.Context) error {
					return m.deps.Cycle.Start(ctx, l.ID)
				}), true
			}
		}
		return m, nil, false
	case tea.KeySpace:
		if m.activeTab == TabLinks {
			if l, ok := m.links.Selected(); ok {
				return m, actionCmd("Toggled "+l.Title, func(ctx context.Context) error {
					_, err := m.deps.Links.Toggle(ctx, l.ID)
					return err
				}), true
			}
		}
		return m, nil, false
	case tea.KeyRunes:
	default:
		return m, nil, false
	}

	switch string(msg.Runes) {
	case "1", "2", "3", "4", "5":
		m.setTab(DashboardTab(msg.Runes[0] - '1'))
		return m, nil, true
	case "q":
		return m, m.quit(), true
	case "s":
		return m, actionCmd("Started", func(ctx context.Context) error {
			return m.deps.Cycle.Start(ctx, "")
		}), true
	case "p":
		run := m.deps.Cycle.Snapshot()
		if run.IsPaused {
			return m, actionCmd("Resumed", func(ctx context.Context) error {
				m.deps.Cycle.Resume(ctx)
				return nil
			}), true
		}
		return m, actionCmd("Paused", func(ctx context.Context) error {
			m.deps.Cycle.Pause(ctx)
			return nil
		}), true
	case "x":
		return m, actionCmd("Stopped", func(ctx context.Context) error {
			m.deps.Cycle.Stop(ctx, domain.StopManual)
			return nil
		}), true
	case "r":
		return m, loadSnapshotCmd(m.deps), true
	}
	return m, nil, false
}

func (m *DashboardModel) quit() tea.Cmd {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	return tea.Quit
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	var content string
	switch m.activeTab {
	case TabOverview:
		content = m.overview.View()
	case TabLinks:
		content = m.links.View()
	case TabLogs:
		content = m.logs.View()
	case TabEvents:
		content = m.events.View()
	case TabConfig:
		content = m.config.View()
	}
	content = lipgloss.NewStyle().Height(m.contentHeight()).MaxHeight(m.contentHeight()).Render(content)

	m.statusBar.Hints = []components.KeyHint{
		{Key: "s", Desc: "Start"},
		{Key: "p", Desc: "Pause/Resume"},
		{Key: "x", Desc: "Stop"},
		{Key: "Tab", Desc: "Switch"},
		{Key: "q", Desc: "Quit"},
	}
	m.statusBar.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, m.tabBar.View(), content, m.statusBar.View())
}

func (m *DashboardModel) contentHeight() int {
	h := m.height - 2 // tab bar + status bar
	if h < 5 {
		h = 5
	}
	return h
}

func (m *DashboardModel) layout() {
	h := m.contentHeight()
	m.tabBar.SetWidth(m.width)
	m.overview.SetSize(m.width, h)
	m.links.SetSize(m.width, h)
	m.logs.SetSize(m.width, h)
	m.events.SetSize(m.width, h)
	m.config.SetSize(m.width, h)
}

func (m *DashboardModel) setTab(tab DashboardTab) {
	m.tabBar.SetActive(int(tab))
	m.activeTab = DashboardTab(m.tabBar.Active)
	if m.activeTab == TabLogs {
		m.overview.Errors = 0
		m.tabBar.SetBadge("logs", 0)
	}
}

func (m *DashboardModel) notify(text string, isErr bool) {
	m.statusBar.Notice = text
	m.statusBar.IsErr = isErr
}

func (m *DashboardModel) syncRun(run domain.RunState) {
	m.overview.Run = run
	m.links.SetActive(run.ActiveLinkID)
	m.statusBar.State = string(run.Phase())
	m.overview.CurrentURL = ""
	if run.IsRunning && !run.IsPaused {
		if i := domain.IndexOfLink(m.overview.Links, run.ActiveLinkID); i >= 0 {
			m.overview.CurrentURL = m.overview.Links[i].URL
		}
	}
}

func (m *DashboardModel) applySnapshot(msg SnapshotMsg) {
	if msg.Err != nil {
		m.notify(uxerror.Humanize(msg.Err).Title, true)
		return
	}
	m.overview.Links = msg.Links
	m.overview.Settings = msg.Settings
	m.overview.NextRuns = msg.NextRuns
	m.links.SetLinks(msg.Links)
	m.logs.SetEntries(msg.Logs)
	m.config.SetSettings(msg.Settings)
	m.syncRun(msg.Run)
}

func (m *DashboardModel) handleEvent(event domain.Event) tea.Cmd {
	m.events.AddEvent(event)

	switch event.Type {
	case domain.EventLogAppended:
		var entry domain.LogEntry
		if json.Unmarshal(event.Payload, &entry) == nil {
			m.logs.AddEntry(entry)
			if entry.EventType == domain.LogError {
				m.overview.Errors++
				if m.activeTab != TabLogs {
					m.tabBar.SetBadge("logs", m.overview.Errors)
				}
			}
		}
	case domain.EventLogCleared:
		m.logs.SetEntries(nil)
	case domain.EventCycleStopped:
		m.syncRun(domain.IdleRunState())
	case domain.EventCycleStarted, domain.EventCyclePaused, domain.EventCycleResumed, domain.EventCycleTick:
		var run domain.RunState
		if json.Unmarshal(event.Payload, &run) == nil {
			if event.Type == domain.EventCycleTick {
				m.overview.Opened++
			}
			m.syncRun(run)
		}
	}

	if strings.HasPrefix(string(event.Type), "link.") || event.Type == domain.EventSettingsSaved {
		return loadSnapshotCmd(m.deps)
	}
	return nil
}
