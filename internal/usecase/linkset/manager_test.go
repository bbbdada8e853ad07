package linkset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/adapter/store"
	"clickloop/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCycle struct{ active bool }

func (f *fakeCycle) IsActive() bool { return f.active }

type fakeTitles map[string]string

func (f fakeTitles) Lookup(_ context.Context, u string) string { return f[u] }

type fakeSuggester struct {
	urls  []string
	err   error
	topic string
}

func (f *fakeSuggester) Suggest(_ context.Context, topic string, _ []string) ([]string, error) {
	f.topic = topic
	return f.urls, f.err
}

type fixture struct {
	mgr       *Manager
	store     *store.Store
	cycle     *fakeCycle
	suggester *fakeSuggester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv, err := store.NewFileKV(t.TempDir())
	require.NoError(t, err)
	s := store.New(kv)
	cycle := &fakeCycle{}
	sug := &fakeSuggester{}
	titles := fakeTitles{"https://go.dev/": "The Go Programming Language"}
	mgr := NewManager(Stores{Links: s, Settings: s, Logs: s}, cycle, titles, sug, nil, newTestLogger())
	return &fixture{mgr: mgr, store: s, cycle: cycle, suggester: sug}
}

func TestManager_AddDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.mgr.Add(ctx, domain.Link{Title: "Example", URL: " https://example.com "})
	require.NoError(t, err)
	assert.NotEmpty(t, link.ID)
	assert.Equal(t, "https://example.com", link.URL)
	assert.Equal(t, domain.DefaultIntervalSec, link.IntervalSec)
	assert.Equal(t, 0, link.Iterations)
	assert.True(t, link.Enabled)

	second, err := f.mgr.Add(ctx, domain.Link{Title: "Second", URL: "https://example.org", IntervalSec: 9, Iterations: 3})
	require.NoError(t, err)
	assert.NotEqual(t, link.ID, second.ID)

	links, err := f.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, link.ID, links[0].ID, "new links are appended")
}

func TestManager_AddTitleAutofill(t *testing.T) {
	f := newFixture(t)

	link, err := f.mgr.Add(context.Background(), domain.Link{URL: "https://go.dev/"})
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", link.Title)

	// No title found and none given: the form rule still applies.
	_, err = f.mgr.Add(context.Background(), domain.Link{URL: "https://unknown.example"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestManager_AddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []domain.Link{
		{Title: "x", URL: "not a url"},
		{Title: "x", URL: "https://ok.example", IntervalSec: -1},
		{Title: "x", URL: "https://ok.example", Iterations: -2},
	}
	for _, l := range tests {
		_, err := f.mgr.Add(ctx, l)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", l)
	}
	links, err := f.mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestManager_UpdateToggleDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.mgr.Add(ctx, domain.Link{Title: "A", URL: "https://a.example"})
	require.NoError(t, err)

	title, interval := "A2", 12
	updated, err := f.mgr.Update(ctx, link.ID, Patch{Title: &title, IntervalSec: &interval})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Title)
	assert.Equal(t, 12, updated.IntervalSec)
	assert.Equal(t, link.URL, updated.URL)

	bad := 0
	_, err = f.mgr.Update(ctx, link.ID, Patch{IntervalSec: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	toggled, err := f.mgr.Toggle(ctx, link.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	got, err := f.mgr.Get(ctx, link.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, 12, got.IntervalSec)

	require.NoError(t, f.mgr.Delete(ctx, link.ID))
	_, err = f.mgr.Get(ctx, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeLinkNotFound, domain.ErrorCodeOf(err))

	assert.ErrorIs(t, f.mgr.Delete(ctx, link.ID), domain.ErrNotFound)
}

func TestManager_RejectsEditsWhileActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.mgr.Add(ctx, domain.Link{Title: "A", URL: "https://a.example"})
	require.NoError(t, err)

	f.cycle.active = true
	_, err = f.mgr.Toggle(ctx, link.ID)
	assert.ErrorIs(t, err, domain.ErrCycleActive)
	_, err = f.mgr.Update(ctx, link.ID, Patch{})
	assert.ErrorIs(t, err, domain.ErrCycleActive)
	assert.ErrorIs(t, f.mgr.Delete(ctx, link.ID), domain.ErrCycleActive)

	// Adding is still allowed; the scheduler sees it on its next tick.
	_, err = f.mgr.Add(ctx, domain.Link{Title: "B", URL: "https://b.example"})
	assert.NoError(t, err)
}

func TestManager_RechecksActiveAfterWaitingForLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.mgr.Add(ctx, domain.Link{Title: "A", URL: "https://a.example"})
	require.NoError(t, err)

	// Hold the edit lock so Delete queues behind it, then start a run.
	f.mgr.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- f.mgr.Delete(ctx, link.ID) }()
	time.Sleep(50 * time.Millisecond)
	f.cycle.active = true
	f.mgr.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrCycleActive)
	case <-time.After(2 * time.Second):
		t.Fatal("Delete did not return")
	}
	links, err := f.mgr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestManager_SaveSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.mgr.SaveSettings(ctx, domain.Settings{Mode: "random", GlobalInterval: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeRandom, got.Mode)

	stored, err := f.mgr.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	_, err = f.mgr.SaveSettings(ctx, domain.Settings{Mode: domain.ModeSequential, MaxTotalIterations: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.mgr.SaveSettings(ctx, domain.Settings{Mode: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestManager_AddSuggested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.suggester.urls = []string{"https://go.dev/", "https://pkg.go.dev"}
	link, err := f.mgr.AddSuggested(ctx, " golang ", nil, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "golang", f.suggester.topic)
	assert.Equal(t, "https://go.dev/", link.URL)
	assert.Equal(t, "The Go Programming Language", link.Title)
	assert.Equal(t, 2, link.Iterations)

	f.suggester.urls = []string{"https://www.rust-lang.org/learn"}
	link, err = f.mgr.AddSuggested(ctx, "rust", nil, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, "rust-lang.org", link.Title, "host is the fallback title")
	assert.Equal(t, 7, link.IntervalSec)
}

func TestManager_AddSuggestedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.AddSuggested(ctx, "", nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.suggester.urls = nil
	_, err = f.mgr.AddSuggested(ctx, "nothing", nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrNoSuggestion)

	f.suggester.err = errors.New("upstream down")
	_, err = f.mgr.AddSuggested(ctx, "x", nil, 0, 0)
	assert.Error(t, err)

	noSug := NewManager(Stores{Links: f.store, Settings: f.store, Logs: f.store}, nil, nil, nil, nil, newTestLogger())
	_, err = noSug.Suggest(ctx, "x", nil)
	assert.ErrorIs(t, err, domain.ErrCollaborator)
}

func TestManager_Logs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Append(ctx, domain.LogEntry{Timestamp: 1, EventType: domain.LogInfo, Message: "hi"}))
	entries, err := f.mgr.Logs(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, f.mgr.ClearLogs(ctx))
	entries, err = f.mgr.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
