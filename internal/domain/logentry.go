package domain

import (
	"context"
	"time"
)

// LogEventType classifies a user-visible log entry.
type LogEventType string

const (
	LogLoad   LogEventType = "LOAD"
	LogStart  LogEventType = "START"
	LogPause  LogEventType = "PAUSE"
	LogResume LogEventType = "RESUME"
	LogStop   LogEventType = "STOP"
	LogFinish LogEventType = "FINISH"
	LogError  LogEventType = "ERROR"
	LogInfo   LogEventType = "INFO"
)

// MaxLogEntries is the number of entries the log keeps.
const MaxLogEntries = 200

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp int64        `json:"timestamp"` // unix milliseconds
	EventType LogEventType `json:"eventType"`
	Message   string       `json:"message"`
}

// NewLogEntry stamps an entry with t.
func NewLogEntry(t time.Time, typ LogEventType, msg string) LogEntry {
	return LogEntry{Timestamp: t.UnixMilli(), EventType: typ, Message: msg}
}

// Time returns the entry timestamp.
func (e LogEntry) Time() time.Time { return time.UnixMilli(e.Timestamp) }

// LogSink is the bounded activity log. List returns newest first.
type LogSink interface {
	Append(ctx context.Context, entry LogEntry) error
	List(ctx context.Context) ([]LogEntry, error)
	Clear(ctx context.Context) error
}
