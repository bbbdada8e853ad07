// Package tabs provides individual tab models for the dashboard.
package tabs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
	"clickloop/internal/usecase/scheduling"
)

// OverviewModel shows the run state, the link on display and counters.
type OverviewModel struct {
	Run         domain.RunState
	Settings    domain.Settings
	Links       []domain.Link
	CurrentURL  string
	DisplayName string
	NextRuns    []scheduling.NextRun
	Opened      int
	Errors      int
	StartedAt   time.Time
	width       int
	height      int
}

// NewOverview creates an overview tab.
func NewOverview() OverviewModel {
	return OverviewModel{
		Run:       domain.IdleRunState(),
		Settings:  domain.DefaultSettings(),
		StartedAt: time.Now(),
	}
}

// SetSize sets dimensions.
func (m *OverviewModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update is a no-op for the overview tab.
func (m OverviewModel) Update(_ tea.Msg) (OverviewModel, tea.Cmd) {
	return m, nil
}

// PhaseLabel renders the run phase with its symbol.
func PhaseLabel(run domain.RunState) string {
	switch run.Phase() {
	case domain.PhaseRunning:
		return theme.TextSuccess.Render(theme.SymbolPlay + " RUNNING")
	case domain.PhasePaused:
		return theme.TextWarning.Render(theme.SymbolPause + " PAUSED")
	}
	return theme.TextMuted.Render(theme.SymbolStop + " IDLE")
}

// View renders the overview tab.
func (m OverviewModel) View() string {
	var sb strings.Builder

	sb.WriteString(theme.Bold.Render("  Cycle") + "\n")
	fmt.Fprintf(&sb, "  %s  %s\n", theme.StatLabel.Render("State   "), PhaseLabel(m.Run))
	fmt.Fprintf(&sb, "  %s  %s\n", theme.StatLabel.Render("Mode    "), m.modeLabel())

	limit := "unlimited"
	if m.Settings.MaxTotalIterations > 0 {
		limit = fmt.Sprintf("%d", m.Settings.MaxTotalIterations)
	}
	fmt.Fprintf(&sb, "  %s  %s / %s\n", theme.StatLabel.Render("Visits  "),
		theme.StatValue.Render(fmt.Sprintf("%d", m.Run.TotalIterationCount)), limit)

	showing := theme.TextMuted.Render("nothing")
	if m.CurrentURL != "" {
		showing = theme.TextInfo.Render(m.CurrentURL)
	}
	fmt.Fprintf(&sb, "  %s  %s %s\n", theme.StatLabel.Render("Showing "), showing,
		theme.Dim.Render("("+m.DisplayName+")"))

	if m.Run.IsRunning && len(m.Run.PerLinkVisitCount) > 0 {
		sb.WriteString("\n" + theme.Bold.Render("  Visits per link") + "\n")
		for _, l := range m.Links {
			n, ok := m.Run.PerLinkVisitCount[l.ID]
			if !ok {
				continue
			}
			ceiling := "∞"
			if l.Iterations > 0 {
				ceiling = fmt.Sprintf("%d", l.Iterations)
			}
			marker := "  "
			if l.ID == m.Run.ActiveLinkID {
				marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
			}
			fmt.Fprintf(&sb, "  %s%-30s %d/%s\n", marker, truncate(l.Title, 30), n, ceiling)
		}
	}

	if len(m.NextRuns) > 0 {
		sb.WriteString("\n" + theme.Bold.Render("  Schedule") + "\n")
		runs := append([]scheduling.NextRun(nil), m.NextRuns...)
		sort.Slice(runs, func(i, j int) bool { return runs[i].At.Before(runs[j].At) })
		for _, r := range runs {
			fmt.Fprintf(&sb, "  %s %-12s %s\n", theme.SymbolBullet, string(r.Action),
				theme.Dim.Render(r.At.Format("Mon 15:04")))
		}
	}

	sb.WriteString("\n" + theme.Bold.Render("  Statistics") + "\n")
	enabled := len(domain.EnabledLinks(m.Links))
	stats := []struct{ label, value string }{
		{"Links", fmt.Sprintf("%d/%d enabled", enabled, len(m.Links))},
		{"Opened", fmt.Sprintf("%d", m.Opened)},
		{"Errors", fmt.Sprintf("%d", m.Errors)},
		{"Uptime", time.Since(m.StartedAt).Round(time.Second).String()},
	}
	parts := make([]string, 0, len(stats))
	for _, s := range stats {
		parts = append(parts, theme.TextMuted.Render(s.label)+": "+theme.StatValue.Render(s.value))
	}
	sep := "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render("|") + "  "
	sb.WriteString("  " + strings.Join(parts, sep) + "\n")

	return sb.String()
}

func (m OverviewModel) modeLabel() string {
	if m.Run.SingleLoopLinkID != "" {
		for _, l := range m.Links {
			if l.ID == m.Run.SingleLoopLinkID {
				return "pinned to " + l.Title
			}
		}
		return "pinned"
	}
	mode := string(m.Settings.Mode)
	if m.Settings.GlobalInterval > 0 {
		mode += fmt.Sprintf(", every %ds", m.Settings.GlobalInterval)
	}
	return mode
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + theme.SymbolEllipsis
}
