package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Liveness   LivenessConfig   `yaml:"liveness"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Doors      []DoorConfig     `yaml:"doors"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LivenessConfig holds the heartbeat watchdog configuration. The evaluation
// period equals the timeout window.
type LivenessConfig struct {
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// ReconcilerConfig holds settings for the offline-batch reconciliation path.
// Timezone is the IANA zone the controllers' buffered timestamps are
// interpreted in; it is an explicit parameter rather than the host locale.
type ReconcilerConfig struct {
	Timezone string `yaml:"timezone"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// DoorConfig describes one monitored emergency door.
type DoorConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3028
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Liveness.TimeoutSeconds <= 0 {
		cfg.Liveness.TimeoutSeconds = 150
	}
	cfg.Liveness.Timeout = time.Duration(cfg.Liveness.TimeoutSeconds) * time.Second

	if cfg.Reconciler.Timezone == "" {
		log.Printf("reconciler.timezone is not set; defaulting to America/Sao_Paulo")
		cfg.Reconciler.Timezone = "America/Sao_Paulo"
	}
	if _, err := time.LoadLocation(cfg.Reconciler.Timezone); err != nil {
		return fmt.Errorf("invalid reconciler timezone %q: %w", cfg.Reconciler.Timezone, err)
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if len(cfg.Doors) == 0 {
		cfg.Doors = []DoorConfig{
			{ID: "1", Name: "Expedição"},
			{ID: "2", Name: "Doca"},
		}
	}
	seen := make(map[string]struct{}, len(cfg.Doors))
	for i, d := range cfg.Doors {
		if d.ID == "" {
			return fmt.Errorf("doors[%d]: id must not be empty", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("doors[%d]: duplicate door id %q", i, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// DoorIDs returns the configured door identifiers in declaration order.
func (cfg *Config) DoorIDs() []string {
	ids := make([]string, len(cfg.Doors))
	for i, d := range cfg.Doors {
		ids[i] = d.ID
	}
	return ids
}
