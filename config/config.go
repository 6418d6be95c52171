package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Sync       SyncConfig       `yaml:"sync"`
	Policy     PolicyConfig     `yaml:"policy"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "sqlite:" or "file:" selects the embedded sqlite driver.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `yaml:"auto_migrate"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// SyncConfig controls the growth sync job.
type SyncConfig struct {
	Enabled            bool          `yaml:"enabled"`
	RunOnStart         bool          `yaml:"run_on_start"`
	IntervalSeconds    int           `yaml:"interval_seconds"`
	Interval           time.Duration `yaml:"-"`
	GranularityMinutes int           `yaml:"granularity_minutes"`
	TenantWorkers      int           `yaml:"tenant_workers"`
	TenantsPerSecond   float64       `yaml:"tenants_per_second"` // 0 = unlimited
	HonorBreaks        *bool         `yaml:"honor_breaks"`
	Timezone           string        `yaml:"timezone"`
	DefaultAvgPrice    string        `yaml:"default_avg_price"`
}

// BreaksHonored reports whether break windows are carved out of generated slots.
func (s SyncConfig) BreaksHonored() bool {
	return s.HonorBreaks == nil || *s.HonorBreaks
}

// PolicyConfig holds the default classification and criticality thresholds.
// Tenants may override any of them through a growth_policies row.
type PolicyConfig struct {
	BlockedCancelRate      float64 `yaml:"blocked_cancel_rate"`
	BlockedMinAppointments int     `yaml:"blocked_min_appointments"`
	AtRiskCancelRate       float64 `yaml:"at_risk_cancel_rate"`
	InactiveDays           int     `yaml:"inactive_days"`
	CriticalCancelRate     float64 `yaml:"critical_cancel_rate"`
	CriticalEmptySlots     int     `yaml:"critical_empty_slots"`
}

// CacheConfig selects the backend used for roster and price lookups.
type CacheConfig struct {
	Backend    string `yaml:"backend"` // memory | redis | none
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// RedisConfig holds the redis connection used by the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
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

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 3600
	}
	cfg.Sync.Interval = time.Duration(cfg.Sync.IntervalSeconds) * time.Second
	if cfg.Sync.GranularityMinutes <= 0 {
		cfg.Sync.GranularityMinutes = 30
	}
	if cfg.Sync.TenantWorkers <= 0 {
		cfg.Sync.TenantWorkers = 4
	}
	if cfg.Sync.Timezone == "" {
		cfg.Sync.Timezone = "UTC"
	}
	if cfg.Sync.DefaultAvgPrice == "" {
		cfg.Sync.DefaultAvgPrice = "0"
	}

	if cfg.Policy.BlockedCancelRate <= 0 {
		cfg.Policy.BlockedCancelRate = 0.5
	}
	if cfg.Policy.BlockedMinAppointments <= 0 {
		cfg.Policy.BlockedMinAppointments = 3
	}
	if cfg.Policy.AtRiskCancelRate <= 0 {
		cfg.Policy.AtRiskCancelRate = 0.25
	}
	if cfg.Policy.InactiveDays <= 0 {
		cfg.Policy.InactiveDays = 30
	}
	if cfg.Policy.CriticalCancelRate <= 0 {
		cfg.Policy.CriticalCancelRate = 0.30
	}
	if cfg.Policy.CriticalEmptySlots <= 0 {
		cfg.Policy.CriticalEmptySlots = 3
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 300
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "growth:"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "growth"
	}
}
