// Package config loads server configuration from an optional YAML file
// overlaid with environment variables, the way
// codeready-toolchain-tarsy/pkg/config loads and validates its YAML
// configuration before the rest of the server starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreBackend selects which store.Store implementation the server wires.
type StoreBackend string

const (
	// BackendMemory uses store/memstore. Default.
	BackendMemory StoreBackend = "memory"
	// BackendRedis uses store/redisstore.
	BackendRedis StoreBackend = "redis"
	// BackendSQL uses store/sqlstore.
	BackendSQL StoreBackend = "sql"
)

// Config is the server's full configuration.
type Config struct {
	// Listen is the address the HTTP server binds, e.g. ":8080".
	Listen string `yaml:"listen"`

	// Store selects the store backend and its connection details.
	Store StoreConfig `yaml:"store"`

	// WorkerPoolSize bounds concurrent synchronous agent executions.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// Registration configures the optional self-registration handshake
	// with an external platform (spec.md §6's "CLI / environment").
	Registration RegistrationConfig `yaml:"registration"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// StoreConfig configures whichever backend Backend selects.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`

	// MemoryTTL and MemoryMaxSize configure store/memstore. Zero disables
	// the respective eviction policy.
	MemoryTTL     time.Duration `yaml:"memory_ttl"`
	MemoryMaxSize int           `yaml:"memory_max_size"`

	// RedisAddr and RedisPrefix configure store/redisstore.
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`

	// PostgresDSN and PostgresTable configure store/sqlstore.
	PostgresDSN   string `yaml:"postgres_dsn"`
	PostgresTable string `yaml:"postgres_table"`
}

// RegistrationConfig controls the self-registration handshake. Disabling
// it is a first-class option per spec.md §6.
type RegistrationConfig struct {
	Enabled     bool   `yaml:"enabled"`
	PlatformURL string `yaml:"platform_url"`
	Production  bool   `yaml:"production_mode"`
}

// Default returns a Config ready to run against the in-memory store.
func Default() Config {
	return Config{
		Listen: ":8080",
		Store: StoreConfig{
			Backend:   BackendMemory,
			MemoryTTL: time.Hour,
		},
		WorkerPoolSize: 16,
	}
}

// Load reads and merges configuration: Default(), then path (if non-empty
// and present), then environment variables. Environment variables always
// win, mirroring the override order of most of the pack's config loaders.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ACP_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ACP_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = StoreBackend(v)
	}
	if v := os.Getenv("ACP_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("ACP_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("PLATFORM_URL"); v != "" {
		cfg.Registration.Enabled = true
		cfg.Registration.PlatformURL = v
	}
	if v := os.Getenv("PRODUCTION_MODE"); v != "" {
		cfg.Registration.Production = v == "1" || v == "true"
	}
	if v := os.Getenv("ACP_DEBUG"); v != "" {
		cfg.Debug = v == "1" || v == "true"
	}
}
