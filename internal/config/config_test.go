package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "hnwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, 300*time.Second, cfg.Settings.FetchInterval())
	assert.False(t, cfg.Watch.Enabled)
	assert.False(t, cfg.Notify.Enabled)
	assert.Empty(t, cfg.Watch.PatternList())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
settings:
  interval: 120
  limit: 5
watch:
  enabled: true
  patterns: "rust, ,launch ,"
notify:
  enabled: true
sinks:
  webhooks:
    - name: ops
      url: http://example.invalid/hook
      post_interval: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Settings.FetchInterval())
	assert.Equal(t, 5, cfg.Settings.Limit)
	assert.True(t, cfg.Watch.Enabled)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, []string{"rust", "launch"}, cfg.Watch.PatternList())
	require.Len(t, cfg.Sinks.Webhooks, 1)
	assert.Equal(t, "generic", cfg.Sinks.Webhooks[0].Provider)
	assert.Equal(t, 2*time.Second, cfg.Sinks.Webhooks[0].PostInterval)
	// Untouched options keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Watch.ScanInterval())
	assert.Equal(t, 1000, cfg.Notify.Capacity)
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings: [this is not a map")

	cfg, err := Load(path)
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
settings:
  interval: -5
  limit: 0
feed:
  source: gopher
notify:
  capacity: -1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	d := Defaults()
	assert.Equal(t, d.Settings.Interval, cfg.Settings.Interval)
	assert.Equal(t, d.Settings.Limit, cfg.Settings.Limit)
	assert.Equal(t, "firebase", cfg.Feed.Source)
	assert.Equal(t, d.Notify.Capacity, cfg.Notify.Capacity)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HNWATCH_WATCH_PATTERNS", "golang,kubernetes")
	t.Setenv("HNWATCH_WATCH_ENABLED", "true")
	t.Setenv("HNWATCH_FEED_RATE_PER_SEC", "2.5")
	t.Setenv("HNWATCH_SINKS_TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, []string{"golang", "kubernetes"}, cfg.Watch.PatternList())
	assert.Equal(t, 2.5, cfg.Feed.RatePerSec)
	assert.Equal(t, int64(-100123), cfg.Sinks.Telegram.ChatID)
}

func TestBadEnvironmentFallsBackToDefaults(t *testing.T) {
	t.Setenv("HNWATCH_SETTINGS_INTERVAL", "soon")

	cfg, err := Load("")
	require.Error(t, err)
	assert.Equal(t, 300, cfg.Settings.Interval)
}

func TestManagerReloadKeepsLastGoodConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watch:\n  patterns: rust\n")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "rust", m.Get().Watch.Patterns)

	writeFile(t, dir, "watch:\n  patterns: go\n")
	require.NoError(t, m.Reload())
	assert.Equal(t, "go", m.Get().Watch.Patterns)

	writeFile(t, dir, "watch: [broken")
	require.Error(t, m.Reload())
	assert.Equal(t, "go", m.Get().Watch.Patterns)
}

func TestManagerWatchPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watch:\n  patterns: rust\n")

	m, err := NewManager(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "watch:\n  patterns: zig\n")

	assert.Eventually(t, func() bool {
		return m.Get().Watch.Patterns == "zig"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
