package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"clickloop/internal/adapter/store"
	"clickloop/internal/domain"
	"clickloop/internal/usecase/scheduling"
)

// StatusResponse is the JSON body returned by GET /api/v1/status.
type StatusResponse struct {
	App      AppStatus            `json:"app"`
	Run      domain.RunState      `json:"run"`
	Phase    domain.RunPhase      `json:"phase"`
	Links    LinkStatus           `json:"links"`
	Counters CounterStatus        `json:"counters"`
	NextRuns []scheduling.NextRun `json:"nextRuns"`
	Clients  int                  `json:"clients"`
}

// AppStatus holds process overview info.
type AppStatus struct {
	Name          string `json:"name"`
	Display       string `json:"display"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// LinkStatus holds link counts.
type LinkStatus struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

// CounterStatus is a snapshot of Metrics.
type CounterStatus struct {
	Ticks  int64 `json:"ticks"`
	Starts int64 `json:"starts"`
	Stops  int64 `json:"stops"`
	Errors int64 `json:"errors"`
}

// Metrics counts cycle activity seen on the event bus since the gateway started.
type Metrics struct {
	Ticks  atomic.Int64
	Starts atomic.Int64
	Stops  atomic.Int64
	Errors atomic.Int64
}

// Track subscribes the counters to bus. The returned func unsubscribes.
func (m *Metrics) Track(bus domain.EventBus) func() {
	unsubs := []func(){
		bus.Subscribe(domain.EventCycleTick, func(context.Context, domain.Event) { m.Ticks.Add(1) }),
		bus.Subscribe(domain.EventCycleStarted, func(context.Context, domain.Event) { m.Starts.Add(1) }),
		bus.Subscribe(domain.EventCycleStopped, func(context.Context, domain.Event) { m.Stops.Add(1) }),
		bus.Subscribe(domain.EventLogAppended, func(_ context.Context, e domain.Event) {
			var entry domain.LogEntry
			if json.Unmarshal(e.Payload, &entry) == nil && entry.EventType == domain.LogError {
				m.Errors.Add(1)
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (m *Metrics) snapshot() CounterStatus {
	return CounterStatus{
		Ticks:  m.Ticks.Load(),
		Starts: m.Starts.Load(),
		Stops:  m.Stops.Load(),
		Errors: m.Errors.Load(),
	}
}

// statusHandler returns an HTTP handler for GET /api/v1/status.
func statusHandler(s *Server, deps HandlerDeps, startTime time.Time, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		links, err := deps.Links.List(r.Context())
		if err != nil {
			writeJSONError(w, err)
			return
		}

		run := deps.Cycle.Snapshot()
		resp := StatusResponse{
			App: AppStatus{
				Name:          "clickloop",
				Display:       deps.DisplayName,
				UptimeSeconds: int64(time.Since(startTime).Seconds()),
			},
			Run:      run,
			Phase:    run.Phase(),
			Links:    LinkStatus{Total: len(links), Enabled: len(domain.EnabledLinks(links))},
			Counters: metrics.snapshot(),
			NextRuns: []scheduling.NextRun{},
			Clients:  s.ClientCount(),
		}
		if deps.Schedule != nil {
			resp.NextRuns = deps.Schedule.NextRuns()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// exportLogsHandler serves the activity log as a downloadable JSON file.
func exportLogsHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var buf bytes.Buffer
		if err := store.ExportLogs(r.Context(), deps.Logs, &buf); err != nil {
			deps.Logger.Warn("log export failed", "error", err)
			writeJSONError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+store.ExportFileName(time.Now())+`"`)
		w.Write(buf.Bytes())
	}
}

func writeJSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(domain.ErrorCodeOf(err)),
	})
}
