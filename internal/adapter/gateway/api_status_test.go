package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := env.links.Add(ctx, domain.Link{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)
	_, err = env.links.Add(ctx, domain.Link{Title: "Example", URL: "https://example.com"})
	require.NoError(t, err)

	resp := get(t, env.url("/api/v1/status"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "clickloop", status.App.Name)
	assert.Equal(t, "none", status.App.Display)
	assert.Equal(t, 2, status.Links.Total)
	assert.Equal(t, 2, status.Links.Enabled)
	assert.Equal(t, domain.PhaseIdle, status.Phase)
	assert.Empty(t, status.NextRuns)
}

func TestStatusRequiresToken(t *testing.T) {
	env := newTestEnv(t, []config.TokenConfig{{Token: "s3cret", Name: "ops"}})

	assert.Equal(t, http.StatusUnauthorized, get(t, env.url("/api/v1/status"), "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, env.url("/api/v1/status"), "nope").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, env.url("/api/v1/status"), "s3cret").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, env.url("/api/v1/status?token=s3cret"), "").StatusCode)
}

func TestStatusRejectsPost(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Post(env.url("/api/v1/status"), "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestExportLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.store.Append(ctx, domain.NewLogEntry(time.UnixMilli(1000), domain.LogStart, "Started")))
	require.NoError(t, env.store.Append(ctx, domain.NewLogEntry(time.UnixMilli(2000), domain.LogStop, "Stopped")))

	resp := get(t, env.url("/api/v1/logs/export"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cd := resp.Header.Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(cd, `attachment; filename="clickloop-logs-`), cd)
	assert.True(t, strings.HasSuffix(cd, `.json"`), cd)

	var entries []domain.LogEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Stopped", entries[0].Message, "newest first")
}

func TestMetricsTrackBusEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.bus.Publish(ctx, domain.NewEvent(domain.EventCycleTick, nil))
	env.bus.Publish(ctx, domain.NewEvent(domain.EventCycleStarted, nil))
	env.bus.Publish(ctx, domain.NewEvent(domain.EventLogAppended, domain.NewLogEntry(time.Now(), domain.LogError, "boom")))
	env.bus.Publish(ctx, domain.NewEvent(domain.EventLogAppended, domain.NewLogEntry(time.Now(), domain.LogInfo, "fine")))

	require.Eventually(t, func() bool {
		s := env.metrics.snapshot()
		return s.Ticks == 1 && s.Starts == 1 && s.Errors == 1
	}, time.Second, 5*time.Millisecond)
}
