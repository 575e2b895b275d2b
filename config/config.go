package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nanzhong/stonkboard/logging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STONKBOARD_"

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Market  MarketConfig  `toml:"market" yaml:"market"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Slack   SlackConfig   `toml:"slack" yaml:"slack"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MarketConfig contains quote provider settings.
type MarketConfig struct {
	// Timeout bounds each provider request, as a Go duration string.
	Timeout      string      `toml:"timeout" yaml:"timeout"`
	DefaultStart string      `toml:"default_start" yaml:"default_start"`
	Cache        CacheConfig `toml:"cache" yaml:"cache"`
}

// TimeoutDuration parses Timeout. Validate reports bad values.
func (m MarketConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(m.Timeout)
	return d
}

// DefaultStartDate parses DefaultStart. Validate reports bad values.
func (m MarketConfig) DefaultStartDate() time.Time {
	t, _ := time.Parse("2006-01-02", m.DefaultStart)
	return t
}

// CacheConfig contains the lookup cache settings.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	TTL        string `toml:"ttl" yaml:"ttl"`
	MaxEntries int    `toml:"max_entries" yaml:"max_entries"`
}

// TTLDuration parses TTL. Validate reports bad values.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Bolt BoltConfig `toml:"bolt" yaml:"bolt"`
}

// BoltConfig contains bbolt settings. An empty path keeps favorites in memory.
type BoltConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// SlackConfig contains Slack app settings. The Slack surface is only mounted
// when BotToken is set.
type SlackConfig struct {
	BotToken      string `toml:"bot_token" yaml:"bot_token"`
	SigningSecret string `toml:"signing_secret" yaml:"signing_secret"`
	Debug         bool   `toml:"debug" yaml:"debug"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// LoadFromFiles loads configuration with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files. The file extension picks the decoder.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Variables already set in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies STONKBOARD_* environment variable overrides to
// config. ADDR, SLACK_BOT_TOKEN and SLACK_SIGNING_SECRET are honored for
// older deployments.
func applyEnvOverrides(config *Config) {
	if addr := os.Getenv("ADDR"); addr != "" {
		applyAddr(config, addr)
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		config.Slack.BotToken = token
	}
	if secret := os.Getenv("SLACK_SIGNING_SECRET"); secret != "" {
		config.Slack.SigningSecret = secret
	}

	if port := env("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := env("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if timeout := env("MARKET_TIMEOUT"); timeout != "" {
		config.Market.Timeout = timeout
	}
	if start := env("MARKET_DEFAULT_START"); start != "" {
		config.Market.DefaultStart = start
	}
	if enabled := env("CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Market.Cache.Enabled = b
		}
	}
	if ttl := env("CACHE_TTL"); ttl != "" {
		config.Market.Cache.TTL = ttl
	}
	if boltPath := env("BOLT_PATH"); boltPath != "" {
		config.Storage.Bolt.Path = boltPath
	}
	if token := env("SLACK_BOT_TOKEN"); token != "" {
		config.Slack.BotToken = token
	}
	if secret := env("SLACK_SIGNING_SECRET"); secret != "" {
		config.Slack.SigningSecret = secret
	}
	if level := env("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := env("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

func env(key string) string {
	return os.Getenv(envPrefix + key)
}

func applyAddr(config *Config, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if p, err := strconv.Atoi(port); err == nil {
		config.Server.Port = p
	}
	config.Server.Host = host
}

// ApplyFlagOverrides applies command-line flag overrides to config. Zero
// values leave the config untouched.
func ApplyFlagOverrides(config *Config, addr, slackBotToken, slackSigningSecret string) {
	if addr != "" {
		applyAddr(config, addr)
	}
	if slackBotToken != "" {
		config.Slack.BotToken = slackBotToken
	}
	if slackSigningSecret != "" {
		config.Slack.SigningSecret = slackSigningSecret
	}
}

// Validate returns every problem found in config. An empty result means the
// config is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if d, err := time.ParseDuration(c.Market.Timeout); err != nil || d <= 0 {
		issues = append(issues, fmt.Sprintf("market.timeout %q is not a positive duration", c.Market.Timeout))
	}
	if _, err := time.Parse("2006-01-02", c.Market.DefaultStart); err != nil {
		issues = append(issues, fmt.Sprintf("market.default_start %q is not a YYYY-MM-DD date", c.Market.DefaultStart))
	}
	if c.Market.Cache.Enabled {
		if d, err := time.ParseDuration(c.Market.Cache.TTL); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("market.cache.ttl %q is not a positive duration", c.Market.Cache.TTL))
		}
		if c.Market.Cache.MaxEntries < 1 {
			issues = append(issues, fmt.Sprintf("market.cache.max_entries %d must be at least 1", c.Market.Cache.MaxEntries))
		}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		issues = append(issues, fmt.Sprintf("logging.level %q is unknown", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	return issues
}
