package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	// The protocol constants clients are built around.
	assert.Equal(t, 10*time.Second, cfg.Stream.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.Stream.RequestCooldown)
	assert.Equal(t, 2*time.Second, cfg.Stream.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.Stream.PendingRequestTTL)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"empty realtime channel", func(c *Config) { c.Realtime.Channel = "" }},
		{"pong not after ping", func(c *Config) { c.Realtime.PongTimeout = c.Realtime.PingInterval }},
		{"zero heartbeat timeout", func(c *Config) { c.Stream.HeartbeatTimeout = 0 }},
		{"negative pending ttl", func(c *Config) { c.Stream.PendingRequestTTL = -time.Second }},
		{"heartbeat interval too long", func(c *Config) { c.Stream.HeartbeatInterval = c.Stream.HeartbeatTimeout }},
		{"redis enabled without address", func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero telemetry retention", func(c *Config) { c.Telemetry.Retention = 0 }},
		{"rate limiting without rps", func(c *Config) { c.RateLimiting.Enabled = true; c.RateLimiting.RequestsPerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: ":9090"
stream:
  heartbeat_timeout: 20s
  pending_request_ttl: 2m
redis:
  enabled: true
  address: "redis:6379"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 20*time.Second, cfg.Stream.HeartbeatTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Stream.PendingRequestTTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Stream.RequestCooldown)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: \"\"\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HUDCAST_SERVER_ADDRESS", ":7000")
	t.Setenv("HUDCAST_REDIS_ADDRESS", "redis-prod:6379")
	t.Setenv("HUDCAST_JWT_SECRET", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "redis-prod:6379", cfg.Redis.Address)
	assert.True(t, cfg.Redis.Enabled, "redis address override implies enabled")
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}
