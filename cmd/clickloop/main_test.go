package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

func TestConfigPath(t *testing.T) {
	old := cfgFile
	t.Cleanup(func() { cfgFile = old })

	cfgFile = ""
	t.Setenv("CLICKLOOP_CONFIG", "")
	assert.Equal(t, config.DefaultPath, configPath())

	t.Setenv("CLICKLOOP_CONFIG", "/etc/clickloop.yaml")
	assert.Equal(t, "/etc/clickloop.yaml", configPath())

	cfgFile = "flag.yaml"
	assert.Equal(t, "flag.yaml", configPath())
}

func TestRenderLinks(t *testing.T) {
	t.Setenv("COLUMNS", "")
	out := renderLinks([]domain.Link{
		{ID: "a1", Title: "Example", URL: "https://example.com", IntervalSec: 5, Enabled: true},
		{ID: "b2", Title: "Docs", URL: "https://go.dev", IntervalSec: 10, Iterations: 3},
	})
	for _, want := range []string{"ID", "a1", "Example", "https://go.dev", "10s", "∞", "3", "no"} {
		assert.Contains(t, out, want)
	}
}

func TestFormatLogEntry(t *testing.T) {
	e := domain.LogEntry{Timestamp: 1700000000000, EventType: domain.LogStart, Message: "cycle started"}
	line := formatLogEntry(e)
	assert.Contains(t, line, "START")
	assert.True(t, strings.HasSuffix(line, "cycle started"))
}

func TestEncryptCommand(t *testing.T) {
	t.Setenv("CLICKLOOP_CONFIG_KEY", "hunter2")

	var out bytes.Buffer
	encryptCmd.SetOut(&out)
	t.Cleanup(func() { encryptCmd.SetOut(nil) })
	require.NoError(t, encryptCmd.RunE(encryptCmd, []string{"sk-secret"}))

	got := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(got, "enc:"))
	plain, err := config.DecryptValue(strings.TrimPrefix(got, "enc:"), "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", plain)
}

func TestEncryptCommandNeedsKey(t *testing.T) {
	t.Setenv("CLICKLOOP_CONFIG_KEY", "")
	err := encryptCmd.RunE(encryptCmd, []string{"x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestManageCommandsUseStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLICKLOOP_CONFIG", "")
	t.Setenv("CLICKLOOP_DATA_DIR", dir)
	t.Setenv("CLICKLOOP_TITLE_MODE", "off")
	old := cfgFile
	cfgFile = dir + "/missing.yaml"
	t.Cleanup(func() { cfgFile = old })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := newApp(ctx, manageOptions)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "none", a.display.Name())
	link, err := a.links.Add(ctx, domain.Link{Title: "Example", URL: "https://example.com"})
	require.NoError(t, err)

	links, err := a.links.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}
