package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"clickloop/internal/domain"
	"clickloop/internal/usecase/linkset"
	"clickloop/internal/usecase/scheduling"
)

// CycleControl is the part of the cycle scheduler exposed over RPC.
type CycleControl interface {
	Snapshot() domain.RunState
	Start(ctx context.Context, singleLinkID string) error
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Stop(ctx context.Context, reason domain.StopReason)
}

// HandlerDeps holds dependencies needed by RPC handlers.
type HandlerDeps struct {
	Cycle       CycleControl
	Links       *linkset.Manager
	Logs        domain.LogSink
	Schedule    *scheduling.Scheduler // can be nil (autostart disabled)
	DisplayName string
	Logger      *slog.Logger
}

// RegisterDefaultHandlers registers the built-in RPC methods.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler("cycle.start", handleCycleStart(deps))
	s.RegisterHandler("cycle.pause", handleCyclePause(deps))
	s.RegisterHandler("cycle.resume", handleCycleResume(deps))
	s.RegisterHandler("cycle.stop", handleCycleStop(deps))
	s.RegisterHandler("cycle.status", handleCycleStatus(deps))

	s.RegisterHandler("links.list", handleLinksList(deps))
	s.RegisterHandler("links.add", handleLinksAdd(deps))
	s.RegisterHandler("links.update", handleLinksUpdate(deps))
	s.RegisterHandler("links.toggle", handleLinksToggle(deps))
	s.RegisterHandler("links.delete", handleLinksDelete(deps))
	s.RegisterHandler("links.suggest", handleLinksSuggest(deps))

	s.RegisterHandler("settings.get", handleSettingsGet(deps))
	s.RegisterHandler("settings.save", handleSettingsSave(deps))

	s.RegisterHandler("logs.list", handleLogsList(deps))
	s.RegisterHandler("logs.clear", handleLogsClear(deps))

	s.RegisterHandler("title.lookup", handleTitleLookup(deps))
}

// RegisterRESTHandlers registers HTTP REST endpoints on the gateway server.
// The returned Metrics count bus events until the server stops.
func RegisterRESTHandlers(s *Server, deps HandlerDeps) *Metrics {
	startTime := time.Now()
	metrics := &Metrics{}
	s.onStop(metrics.Track(s.bus))

	// Auth middleware for REST endpoints.
	authMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = r.Header.Get("Authorization")
				if len(token) > 7 && token[:7] == "Bearer " {
					token = token[7:]
				}
			}
			if _, err := s.auth.Authenticate(token); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	s.RegisterHTTPRoute("/api/v1/status", authMiddleware(statusHandler(s, deps, startTime, metrics)))
	s.RegisterHTTPRoute("/api/v1/logs/export", authMiddleware(exportLogsHandler(deps)))
	return metrics
}

// decode unmarshals an optional payload. An empty payload leaves v untouched.
func decode(op string, payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return domain.NewDomainError(op, domain.ErrRPCInvalidPayload, err.Error())
	}
	return nil
}

func okResult() (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func result(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

func handleCycleStart(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			LinkID string `json:"linkId"`
		}
		if err := decode("cycle.start", payload, &req); err != nil {
			return nil, err
		}
		if err := deps.Cycle.Start(ctx, req.LinkID); err != nil {
			return nil, err
		}
		deps.Logger.Info("cycle started via gateway", "client", client.Name, "link_id", req.LinkID)
		return result(deps.Cycle.Snapshot())
	}
}

func handleCyclePause(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		deps.Cycle.Pause(ctx)
		return result(deps.Cycle.Snapshot())
	}
}

func handleCycleResume(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		deps.Cycle.Resume(ctx)
		return result(deps.Cycle.Snapshot())
	}
}

func handleCycleStop(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := decode("cycle.stop", payload, &req); err != nil {
			return nil, err
		}
		reason, err := domain.ParseStopReason(req.Reason)
		if err != nil {
			return nil, err
		}
		deps.Cycle.Stop(ctx, reason)
		return result(deps.Cycle.Snapshot())
	}
}

func handleCycleStatus(deps HandlerDeps) RPCHandler {
	return func(context.Context, *ClientInfo, json.RawMessage) (json.RawMessage, error) {
		return result(deps.Cycle.Snapshot())
	}
}

func handleLinksList(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		links, err := deps.Links.List(ctx)
		if err != nil {
			return nil, err
		}
		return result(map[string]any{"links": links})
	}
}

func handleLinksAdd(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req domain.Link
		if err := decode("links.add", payload, &req); err != nil {
			return nil, err
		}
		link, err := deps.Links.Add(ctx, req)
		if err != nil {
			return nil, err
		}
		return result(link)
	}
}

func handleLinksUpdate(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			ID string `json:"id"`
			linkset.Patch
		}
		if err := decode("links.update", payload, &req); err != nil {
			return nil, err
		}
		if req.ID == "" {
			return nil, domain.NewDomainError("links.update", domain.ErrRPCInvalidPayload, "id is required")
		}
		link, err := deps.Links.Update(ctx, req.ID, req.Patch)
		if err != nil {
			return nil, err
		}
		return result(link)
	}
}

type idRequest struct {
	ID string `json:"id"`
}

func decodeID(op string, payload json.RawMessage) (string, error) {
	var req idRequest
	if err := decode(op, payload, &req); err != nil {
		return "", err
	}
	if req.ID == "" {
		return "", domain.NewDomainError(op, domain.ErrRPCInvalidPayload, "id is required")
	}
	return req.ID, nil
}

func handleLinksToggle(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		id, err := decodeID("links.toggle", payload)
		if err != nil {
			return nil, err
		}
		link, err := deps.Links.Toggle(ctx, id)
		if err != nil {
			return nil, err
		}
		return result(link)
	}
}

func handleLinksDelete(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		id, err := decodeID("links.delete", payload)
		if err != nil {
			return nil, err
		}
		if err := deps.Links.Delete(ctx, id); err != nil {
			return nil, err
		}
		return okResult()
	}
}

func handleLinksSuggest(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			Topic       string   `json:"topic"`
			Examples    []string `json:"examples"`
			Add         bool     `json:"add"`
			IntervalSec int      `json:"intervalSec"`
			Iterations  int      `json:"iterations"`
		}
		if err := decode("links.suggest", payload, &req); err != nil {
			return nil, err
		}
		if req.Add {
			link, err := deps.Links.AddSuggested(ctx, req.Topic, req.Examples, req.IntervalSec, req.Iterations)
			if err != nil {
				return nil, err
			}
			return result(link)
		}
		urls, err := deps.Links.Suggest(ctx, req.Topic, req.Examples)
		if err != nil {
			return nil, err
		}
		return result(map[string]any{"urls": urls})
	}
}

func handleSettingsGet(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		settings, err := deps.Links.Settings(ctx)
		if err != nil {
			return nil, err
		}
		return result(settings)
	}
}

func handleSettingsSave(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		current, err := deps.Links.Settings(ctx)
		if err != nil {
			return nil, err
		}
		// Fields absent from the payload keep their stored values.
		if err := decode("settings.save", payload, &current); err != nil {
			return nil, err
		}
		saved, err := deps.Links.SaveSettings(ctx, current)
		if err != nil {
			return nil, err
		}
		return result(saved)
	}
}

func handleLogsList(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			Limit int `json:"limit"`
		}
		if err := decode("logs.list", payload, &req); err != nil {
			return nil, err
		}
		entries, err := deps.Links.Logs(ctx)
		if err != nil {
			return nil, err
		}
		if req.Limit > 0 && len(entries) > req.Limit {
			entries = entries[:req.Limit]
		}
		return result(map[string]any{"entries": entries})
	}
}

func handleLogsClear(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		if err := deps.Links.ClearLogs(ctx); err != nil {
			return nil, err
		}
		return okResult()
	}
}

func handleTitleLookup(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			URL string `json:"url"`
		}
		if err := decode("title.lookup", payload, &req); err != nil {
			return nil, err
		}
		if err := domain.ValidateURL(req.URL); err != nil {
			return nil, err
		}
		return result(map[string]string{"title": deps.Links.LookupTitle(ctx, req.URL)})
	}
}
