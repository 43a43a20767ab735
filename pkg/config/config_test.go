package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, PushLog, cfg.Notifications.Driver)
	assert.True(t, cfg.Attendance.EnforceOwnership)
	assert.True(t, cfg.Attendance.EnforceRoster)
	assert.Equal(t, 90, cfg.Attendance.DefaultSessionDuration)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.False(t, cfg.IssuerTokens.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("STATS_CACHE_TTL", "garbage")
	t.Setenv("ATTENDANCE_ENFORCE_ROSTER", "false")
	t.Setenv("BROADCAST_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.False(t, cfg.Attendance.EnforceRoster)
	assert.Equal(t, 3, cfg.Notifications.BroadcastConcurrency)
}

func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
