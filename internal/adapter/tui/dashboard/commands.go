package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const commandTimeout = 10 * time.Second

// loadSnapshotCmd reads links, settings and logs asynchronously.
func loadSnapshotCmd(deps DashboardDeps) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		msg := SnapshotMsg{Run: deps.Cycle.Snapshot()}
		if msg.Links, msg.Err = deps.Links.List(ctx); msg.Err != nil {
			return msg
		}
		if msg.Settings, msg.Err = deps.Links.Settings(ctx); msg.Err != nil {
			return msg
		}
		if msg.Logs, msg.Err = deps.Links.Logs(ctx); msg.Err != nil {
			return msg
		}
		if deps.Schedule != nil {
			msg.NextRuns = deps.Schedule.NextRuns()
		}
		return msg
	}
}

// actionCmd runs fn off the UI goroutine.
func actionCmd(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ActionResultMsg{Action: action, Err: fn(ctx)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return TickMsg{} })
}
