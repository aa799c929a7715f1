package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///./test.db")
	t.Setenv("INSIGHTLY_ENABLED", "false")
	t.Setenv("MONDAY_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./test.db", cfg.Database.GetSQLitePath())
	assert.False(t, cfg.Database.IsPostgres())
	assert.Equal(t, 15*time.Second, cfg.Insightly.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Sync.SweepInterval)
	assert.Equal(t, 20, cfg.Dispatcher.BatchSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/inquiries?sslmode=disable")
	t.Setenv("MONDAY_ENABLED", "true")
	t.Setenv("MONDAY_API_TOKEN", "tok")
	t.Setenv("MONDAY_BOARD_ID", "123")
	t.Setenv("MONDAY_ACCOUNT", "acme")
	t.Setenv("SYNC_SWEEP_INTERVAL", "5m")
	t.Setenv("ALLOWED_HOSTS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.IsPostgres())
	assert.Equal(t, 5*time.Minute, cfg.Sync.SweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "acme", cfg.Monday.Account)
}

func TestValidateRequiresCredentialsForEnabledTargets(t *testing.T) {
	t.Setenv("INSIGHTLY_ENABLED", "true")
	t.Setenv("INSIGHTLY_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSIGHTLY_API_KEY")
}
