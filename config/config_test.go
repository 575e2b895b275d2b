package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Market.TimeoutDuration())
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Market.DefaultStartDate())
	assert.False(t, cfg.Market.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Market.Cache.TTLDuration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Validate())
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	path := writeFile(t, "stonkboard.toml", `
[server]
port = 9090
host = "127.0.0.1"

[market]
timeout = "3s"

[market.cache]
enabled = true
ttl = "1m"
max_entries = 10

[storage.bolt]
path = "/tmp/test.db"

[logging]
level = "debug"
format = "json"
`)

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, 3*time.Second, cfg.Market.TimeoutDuration())
	assert.True(t, cfg.Market.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Market.Cache.TTLDuration())
	assert.Equal(t, 10, cfg.Market.Cache.MaxEntries)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Bolt.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched sections keep their defaults
	assert.Equal(t, "2010-01-01", cfg.Market.DefaultStart)
}

func TestLoadFromFiles_YAMLOverridesTOML(t *testing.T) {
	base := writeFile(t, "base.toml", `
[server]
port = 9090

[slack]
bot_token = "xoxb-base"
`)
	override := writeFile(t, "override.yaml", `
server:
  port: 9191
slack:
  signing_secret: shh
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "xoxb-base", cfg.Slack.BotToken)
	assert.Equal(t, "shh", cfg.Slack.SigningSecret)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromFiles(writeFile(t, "bad.toml", "[server\nport = "))
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("ADDR", "10.0.0.1:7000")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-legacy")
	t.Setenv("STONKBOARD_SERVER_PORT", "7100")
	t.Setenv("STONKBOARD_CACHE_ENABLED", "true")
	t.Setenv("STONKBOARD_LOG_LEVEL", "warn")
	t.Setenv("STONKBOARD_BOLT_PATH", "")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "xoxb-legacy", cfg.Slack.BotToken)
	assert.True(t, cfg.Market.Cache.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "./data/favorites.db", cfg.Storage.Bolt.Path)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, "localhost:9999", "", "secret")

	assert.Equal(t, "localhost:9999", cfg.Server.Addr())
	assert.Empty(t, cfg.Slack.BotToken)
	assert.Equal(t, "secret", cfg.Slack.SigningSecret)

	ApplyFlagOverrides(cfg, "not an addr", "", "")
	assert.Equal(t, "localhost:9999", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		issues int
	}{
		{name: "defaults", modify: func(*Config) {}, issues: 0},
		{name: "bad port", modify: func(c *Config) { c.Server.Port = 0 }, issues: 1},
		{name: "bad timeout", modify: func(c *Config) { c.Market.Timeout = "soon" }, issues: 1},
		{name: "bad start", modify: func(c *Config) { c.Market.DefaultStart = "2010/01/01" }, issues: 1},
		{name: "disabled cache ignores ttl", modify: func(c *Config) { c.Market.Cache.TTL = "-1m" }, issues: 0},
		{
			name: "enabled cache checks ttl and size",
			modify: func(c *Config) {
				c.Market.Cache.Enabled = true
				c.Market.Cache.TTL = "-1m"
				c.Market.Cache.MaxEntries = 0
			},
			issues: 2,
		},
		{name: "bad level", modify: func(c *Config) { c.Logging.Level = "loud" }, issues: 1},
		{name: "bad format", modify: func(c *Config) { c.Logging.Format = "xml" }, issues: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			test.modify(cfg)
			assert.Len(t, cfg.Validate(), test.issues)
		})
	}
}
