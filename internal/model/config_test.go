package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.DefaultSLAID)
	assert.Equal(t, "INBOX", cfg.Intake.Mailbox)
	assert.Equal(t, "@every 15m", cfg.Sweep.Cron)
	assert.False(t, cfg.Intake.Enabled)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
db_path: /tmp/opsdesk-test.db
default_sla_id: 3
intake:
  enabled: true
  host: imap.example.com
  port: "993"
  username: desk@example.com
sweep:
  cron: "@every 5m"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/opsdesk-test.db", cfg.DBPath)
	assert.Equal(t, int64(3), cfg.DefaultSLAID)
	assert.True(t, cfg.Intake.Enabled)
	assert.Equal(t, "imap.example.com", cfg.Intake.Host)
	assert.Equal(t, "@every 5m", cfg.Sweep.Cron)
	assert.Equal(t, "INBOX", cfg.Intake.Mailbox, "unset keys fall back to defaults")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.DefaultSLAID = 7
	cfg.Intake.Host = "mail.example.com"
	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.DefaultSLAID)
	assert.Equal(t, "mail.example.com", got.Intake.Host)
}
