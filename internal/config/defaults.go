package config

import "time"

// Default values.
const (
	DefaultIndexName       = "garden-content"
	DefaultEngineTimeout   = 2 * time.Second
	DefaultFallbackTimeout = 3 * time.Second
	DefaultSearchLimit     = 12
	DefaultMaxLimit        = 50
	DefaultSyncBatchSize   = 100
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/furrow/data/db/content.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/furrow/data/indices"
	}
	if cfg.Engine.IndexName == "" {
		cfg.Engine.IndexName = DefaultIndexName
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = DefaultEngineTimeout
	}
	if cfg.Engine.FallbackTimeout == 0 {
		cfg.Engine.FallbackTimeout = DefaultFallbackTimeout
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = DefaultSearchLimit
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = DefaultMaxLimit
	}
	cfg.Search.Weights = cfg.Search.Weights.WithDefaults()
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = DefaultSyncBatchSize
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".yaml", ".yml", ".json"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

// Default returns a config with every default applied. Used by tests and by the CLI
// when no config file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
