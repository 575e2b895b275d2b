package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Market: MarketConfig{
			Timeout:      "10s",
			DefaultStart: "2010-01-01",
			Cache: CacheConfig{
				Enabled:    false,
				TTL:        "5m",
				MaxEntries: 256,
			},
		},
		Storage: StorageConfig{
			Bolt: BoltConfig{
				Path: "./data/favorites.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
