package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "/MES", cfg.Symbol)
	require.Len(t, cfg.Sessions, 1)
	assert.Equal(t, "london", cfg.Sessions[0].ID)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "platinum.yaml")
	yaml := `
symbol: /MES
quantity: 2
timezone: America/Los_Angeles
entry_fill_timeout: 45s
state_path: state.json
sessions:
  - id: london
    name: London
    reference_hour: 22
    window_start_hour: 23
    window_end_hour: 23
    target_points: 0.2
    stop_points: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Quantity)
	assert.Equal(t, 45*time.Second, cfg.EntryFillTimeout.Std())
	// Omitted knobs pick up defaults.
	assert.Equal(t, 30*time.Second, cfg.RangeFetchTimeout.Std())
	assert.Equal(t, 5*time.Minute, cfg.MaxIdle.Std())
	assert.Equal(t, "info", cfg.LogLevel)

	s := cfg.Sessions[0]
	assert.Equal(t, 2, s.MaxTradesTotal)
	assert.Equal(t, 1, s.MaxPerDirection)
	assert.Equal(t, 5, s.EntryDelayMinutes)
}

func TestLoadFromFileRejectsBadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symbol: [not\n"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)

	noSessions := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(noSessions, []byte("symbol: /MES\n"), 0o644))
	_, err = LoadFromFile(noSessions)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "platinum.yaml")
	require.NoError(t, Default().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Symbol, cfg.Symbol)
	assert.Equal(t, Default().MaxIdle.Std(), cfg.MaxIdle.Std())
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Symbol = "" }},
		{"zero quantity", func(c *Config) { c.Quantity = 0 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"zero timeout", func(c *Config) { c.EntryFillTimeout = 0 }},
		{"missing state path", func(c *Config) { c.StatePath = "" }},
		{"no sessions", func(c *Config) { c.Sessions = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("DXLINK_USERNAME", "user")
	t.Setenv("DXLINK_PASSWORD", "pass")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	c, err := LoadCredentials(false)
	require.NoError(t, err)
	assert.Equal(t, "user", c.BrokerUsername)

	t.Setenv("DXLINK_PASSWORD", "")
	_, err = LoadCredentials(false)
	assert.Error(t, err)

	// Paper mode runs without broker credentials.
	_, err = LoadCredentials(true)
	assert.NoError(t, err)

	t.Setenv("TELEGRAM_TOKEN", "tok")
	_, err = LoadCredentials(true)
	assert.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "42")
	c, err = LoadCredentials(true)
	require.NoError(t, err)
	assert.Equal(t, "42", c.TelegramChatID)
}
