package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false)
	require.NoError(t, err)
	want := Defaults()
	require.Equal(t, want.Debounce, cfg.Debounce)
	require.Equal(t, want.MatchTimeout, cfg.MatchTimeout)
	require.Equal(t, `^-+$`, cfg.SeparatorPattern)
	require.True(t, cfg.Watch)
	require.False(t, cfg.Trace.Enabled)
	require.Equal(t, "stderr", cfg.Trace.Exporter)
	require.Empty(t, cfg.FilenameHandlers)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
user_style_dir: /tmp/styles
debounce: 50ms
match_timeout: 1s
watch: false
filename_handlers:
  - pattern: '/mkfile$'
    style: make
  - pattern: '\.plumb$'
    style: plumbing
trace:
  enabled: true
  exporter: stdout
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.Equal(t, "/tmp/styles", cfg.UserStyleDir)
	require.Equal(t, 50*time.Millisecond, cfg.Debounce)
	require.Equal(t, time.Second, cfg.MatchTimeout)
	require.False(t, cfg.Watch)
	require.Equal(t, []FilenameHandler{
		{Pattern: `/mkfile$`, Style: "make"},
		{Pattern: `\.plumb$`, Style: "plumbing"},
	}, cfg.FilenameHandlers)
	require.Equal(t, Trace{Enabled: true, Exporter: "stdout"}, cfg.Trace)
	// Unset keys keep their defaults.
	require.Equal(t, `^-+$`, cfg.SeparatorPattern)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ACME_SYNTAX_DEBOUNCE", "75ms")
	t.Setenv("ACME_SYNTAX_TRACE_ENABLED", "true")
	path := writeConfig(t, "debounce: 10ms\n")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.Equal(t, 75*time.Millisecond, cfg.Debounce)
	require.True(t, cfg.Trace.Enabled)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.Equal(t, Defaults().Debounce, cfg.Debounce)

	_, err = Load(path, false)
	require.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "debounce: [1, 2\n")
	_, err := Load(path, true)
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "styles"), expandHome("~/styles"))
	require.Equal(t, home, expandHome("~"))
	require.Equal(t, "/abs", expandHome("/abs"))
	require.Equal(t, "~user/x", expandHome("~user/x"))
}
