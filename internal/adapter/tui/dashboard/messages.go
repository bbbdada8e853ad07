// Package dashboard implements the Bubble Tea control dashboard for clickloop.
package dashboard

import (
	"clickloop/internal/domain"
	"clickloop/internal/usecase/scheduling"
)

// EventBusMsg wraps a domain.Event from the EventBus subscription.
type EventBusMsg struct {
	Event domain.Event
}

// SnapshotMsg carries a full reload of the state shown by the dashboard.
type SnapshotMsg struct {
	Run      domain.RunState
	Links    []domain.Link
	Settings domain.Settings
	Logs     []domain.LogEntry
	NextRuns []scheduling.NextRun
	Err      error
}

// ActionResultMsg reports the outcome of a cycle or link command.
type ActionResultMsg struct {
	Action string
	Err    error
}

// TickMsg refreshes time-based fields once a second.
type TickMsg struct{}
