package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "timetable:snapshot", cfg.Snapshots.Key)
	assert.Zero(t, cfg.Snapshots.TTL)
	assert.False(t, cfg.Auth.Enabled)
	assert.Zero(t, cfg.Scheduler.Seed)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCHEDULER_SEED", "42")
	t.Setenv("ROSTER_PATH", "/etc/timetable/roster.yaml")
	t.Setenv("ENABLE_SNAPSHOTS", "true")
	t.Setenv("SNAPSHOT_TTL", "12h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Scheduler.Seed)
	assert.Equal(t, "/etc/timetable/roster.yaml", cfg.Scheduler.RosterPath)
	assert.True(t, cfg.Snapshots.Enabled)
	assert.Equal(t, 12*time.Hour, cfg.Snapshots.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
