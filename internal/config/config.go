// Package config provides configuration loading and structs for the furrow server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/furrow/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	Search  SearchConfig  `yaml:"search"`
	Sync    SyncConfig    `yaml:"sync"`
	Watch   WatchConfig   `yaml:"watch"`
}

// WatchConfig holds import directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the content database and the search indexes.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EngineConfig holds search engine settings.
type EngineConfig struct {
	IndexName       string        `yaml:"index_name"`
	Timeout         time.Duration `yaml:"timeout"`
	FallbackTimeout time.Duration `yaml:"fallback_timeout"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	DefaultLimit int             `yaml:"default_limit"`
	MaxLimit     int             `yaml:"max_limit"`
	Weights      ranking.Weights `yaml:"weights"`
	LexiconPath  string          `yaml:"lexicon_path"`
}

// SyncConfig holds index synchronization settings.
type SyncConfig struct {
	BatchSize       int  `yaml:"batch_size"`
	ClearBeforeSync bool `yaml:"clear_before_sync"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and
// finally applies environment overrides (including a .env file next to the config).
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if err := ApplyEnv(&cfg, filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Search.LexiconPath != "" {
		cfg.Search.LexiconPath = expandPath(cfg.Search.LexiconPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// ApplyEnv loads envFile if it exists (without overriding variables already set) and
// applies FURROW_* overrides to cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if v := os.Getenv("FURROW_INDEX"); v != "" {
		cfg.Engine.IndexName = v
	}
	if v := os.Getenv("FURROW_DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("FURROW_BLEVE_PATH"); v != "" {
		cfg.Storage.BleveIndexPath = v
	}
	if v := os.Getenv("FURROW_LEXICON_PATH"); v != "" {
		cfg.Search.LexiconPath = v
	}
	if v := os.Getenv("FURROW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FURROW_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if err := envDuration("FURROW_ENGINE_TIMEOUT", &cfg.Engine.Timeout); err != nil {
		return err
	}
	return envDuration("FURROW_FALLBACK_TIMEOUT", &cfg.Engine.FallbackTimeout)
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = d
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
