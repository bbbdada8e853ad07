package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// Cycle lifecycle events.
	EventCycleStarted  EventType = "cycle.started"
	EventCyclePaused   EventType = "cycle.paused"
	EventCycleResumed  EventType = "cycle.resumed"
	EventCycleStopped  EventType = "cycle.stopped"
	EventCycleTick     EventType = "cycle.tick"
	EventCycleSchedule EventType = "cycle.schedule.fired"

	// Link set events.
	EventLinkAdded      EventType = "link.added"
	EventLinkUpdated    EventType = "link.updated"
	EventLinkDeleted    EventType = "link.deleted"
	EventSettingsSaved  EventType = "settings.saved"
	EventLogAppended    EventType = "log.appended"
	EventLogCleared     EventType = "log.cleared"
	EventDisplayOpened  EventType = "display.opened"
	EventDisplayClosed  EventType = "display.closed"
	EventSuggestionUsed EventType = "suggest.used"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. A payload that cannot be
// marshaled is dropped and the event is still returned.
func NewEvent(typ EventType, payload any) Event {
	ev := Event{Type: typ, Timestamp: time.Now()}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// DisplayEventPayload is carried by display.opened and display.closed.
type DisplayEventPayload struct {
	Handle DisplayHandle `json:"handle"`
	URL    string        `json:"url,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
