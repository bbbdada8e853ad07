package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
)

func decodeFrame[T any](t *testing.T, f Frame) T {
	t.Helper()
	require.Empty(t, f.Error)
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}

func TestLinksCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	added := decodeFrame[domain.Link](t, c.call("links.add", domain.Link{Title: "Go", URL: "https://go.dev", IntervalSec: 2}))
	assert.NotEmpty(t, added.ID)
	assert.True(t, added.Enabled)

	list := decodeFrame[struct {
		Links []domain.Link `json:"links"`
	}](t, c.call("links.list", nil))
	require.Len(t, list.Links, 1)

	updated := decodeFrame[domain.Link](t, c.call("links.update", map[string]any{"id": added.ID, "title": "Golang"}))
	assert.Equal(t, "Golang", updated.Title)
	assert.Equal(t, "https://go.dev", updated.URL)

	toggled := decodeFrame[domain.Link](t, c.call("links.toggle", map[string]string{"id": added.ID}))
	assert.False(t, toggled.Enabled)

	f := c.call("links.delete", map[string]string{"id": added.ID})
	assert.Empty(t, f.Error)

	links, err := env.store.LoadLinks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLinksAddInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	f := c.call("links.add", domain.Link{Title: "x", URL: "ftp://example.com"})
	assert.NotEmpty(t, f.Error)
	assert.Equal(t, domain.CodeLinkInvalid, f.Code)

	f = c.call("links.toggle", map[string]string{})
	assert.Equal(t, domain.CodeRPCInvalidPayload, f.Code)

	f = c.call("links.delete", map[string]string{"id": "missing"})
	assert.Equal(t, domain.CodeLinkNotFound, f.Code)
}

func TestCycleLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	f := c.call("cycle.start", nil)
	assert.Equal(t, domain.CodeNoEnabledLinks, f.Code)

	link := decodeFrame[domain.Link](t, c.call("links.add", domain.Link{Title: "Go", URL: "https://go.dev", IntervalSec: 5}))

	state := decodeFrame[domain.RunState](t, c.call("cycle.start", nil))
	assert.True(t, state.IsRunning)

	c.waitEvent(domain.EventCycleTick)
	assert.Equal(t, []string{"https://go.dev"}, env.display.History())

	f = c.call("links.toggle", map[string]string{"id": link.ID})
	assert.Equal(t, domain.CodeCycleActive, f.Code)

	state = decodeFrame[domain.RunState](t, c.call("cycle.pause", nil))
	assert.True(t, state.IsPaused)

	state = decodeFrame[domain.RunState](t, c.call("cycle.resume", nil))
	assert.False(t, state.IsPaused)

	state = decodeFrame[domain.RunState](t, c.call("cycle.stop", map[string]string{"reason": "manual"}))
	assert.False(t, state.IsRunning)
	assert.Equal(t, 0, env.display.OpenCount())

	f = c.call("cycle.stop", map[string]string{"reason": "bogus"})
	assert.NotEmpty(t, f.Error)
}

func TestSettingsMergeOnSave(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	got := decodeFrame[domain.Settings](t, c.call("settings.get", nil))
	assert.Equal(t, domain.DefaultSettings(), got)

	saved := decodeFrame[domain.Settings](t, c.call("settings.save", map[string]any{"mode": "RANDOM"}))
	assert.Equal(t, domain.ModeRandom, saved.Mode)
	assert.Equal(t, domain.DefaultMaxTotalIterations, saved.MaxTotalIterations)

	f := c.call("settings.save", map[string]any{"globalInterval": -1})
	assert.Equal(t, domain.CodeSettingsInvalid, f.Code)
}

func TestLogsListAndClear(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, env.store.Append(ctx, domain.NewLogEntry(now.Add(time.Duration(i)*time.Second), domain.LogInfo, "entry")))
	}

	out := decodeFrame[struct {
		Entries []domain.LogEntry `json:"entries"`
	}](t, c.call("logs.list", map[string]int{"limit": 2}))
	assert.Len(t, out.Entries, 2)

	assert.Empty(t, c.call("logs.clear", nil).Error)
	entries, err := env.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLinksSuggest(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	out := decodeFrame[struct {
		URLs []string `json:"urls"`
	}](t, c.call("links.suggest", map[string]any{"topic": "golang"}))
	assert.Equal(t, []string{"https://go.dev/blog"}, out.URLs)

	link := decodeFrame[domain.Link](t, c.call("links.suggest", map[string]any{"topic": "golang", "add": true}))
	assert.Equal(t, "go.dev", link.Title)
	assert.Equal(t, domain.DefaultIntervalSec, link.IntervalSec)

	f := c.call("links.suggest", map[string]any{"topic": "  "})
	assert.NotEmpty(t, f.Error)
}

func TestTitleLookupValidatesURL(t *testing.T) {
	env := newTestEnv(t, nil)
	c := dial(t, env, "")

	f := c.call("title.lookup", map[string]string{"url": "not a url"})
	assert.Equal(t, domain.CodeLinkInvalid, f.Code)

	out := decodeFrame[map[string]string](t, c.call("title.lookup", map[string]string{"url": "https://go.dev"}))
	assert.Equal(t, "", out["title"])
}
