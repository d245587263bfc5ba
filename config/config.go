package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Remote       RemoteConfig       `yaml:"remote"`
	Repository   RepositoryConfig   `yaml:"repository"`
	Sync         SyncConfig         `yaml:"sync"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Seed         SeedConfig         `yaml:"seed"`
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the local store connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // sqlite or postgres
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// RemoteConfig describes the SupplyLine backend.
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`
	HTTPProxy      string        `yaml:"http_proxy"`
}

// RepositoryConfig controls how repositories treat failed remote writes.
type RepositoryConfig struct {
	WritePolicy string `yaml:"write_policy"` // fallback_local or remote_only
}

// SyncConfig holds the background sync scheduler configuration.
type SyncConfig struct {
	PeriodicEnabled      bool          `yaml:"periodic_enabled"`
	PeriodMinutes        int           `yaml:"period_minutes"`
	Period               time.Duration `yaml:"-"`
	FlexMinutes          int           `yaml:"flex_minutes"`
	Flex                 time.Duration `yaml:"-"`
	BackoffBaseSeconds   int           `yaml:"backoff_base_seconds"`
	BackoffBase          time.Duration `yaml:"-"`
	BackoffCapMinutes    int           `yaml:"backoff_cap_minutes"`
	BackoffCap           time.Duration `yaml:"-"`
	Workers              int           `yaml:"workers"`
	RequireBatteryNotLow bool          `yaml:"require_battery_not_low"`
	LowBatteryPercent    int           `yaml:"low_battery_percent"`
	PowerSupplyPath      string        `yaml:"power_supply_path"`
}

// ConnectivityConfig configures the reachability probe.
type ConnectivityConfig struct {
	ProbeURL        string        `yaml:"probe_url"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// SeedConfig toggles sample data for empty stores.
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
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

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv overrides file values with SUPPLYLINE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SUPPLYLINE_REMOTE_BASE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("SUPPLYLINE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SUPPLYLINE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SUPPLYLINE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: ignoring invalid SUPPLYLINE_SERVER_PORT %q: %v", v, err)
		} else {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
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
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "supplyline.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 1
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 1
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = 30
	}
	cfg.Remote.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	if cfg.Remote.RequestsPerSec <= 0 {
		cfg.Remote.RequestsPerSec = 5
	}
	if cfg.Remote.Burst <= 0 {
		cfg.Remote.Burst = 5
	}

	switch cfg.Repository.WritePolicy {
	case "fallback_local", "remote_only":
	case "":
		cfg.Repository.WritePolicy = "fallback_local"
	default:
		log.Printf("Warning: unknown repository.write_policy %q; defaulting to fallback_local", cfg.Repository.WritePolicy)
		cfg.Repository.WritePolicy = "fallback_local"
	}

	if cfg.Sync.PeriodMinutes <= 0 {
		cfg.Sync.PeriodMinutes = 15
	}
	cfg.Sync.Period = time.Duration(cfg.Sync.PeriodMinutes) * time.Minute
	if cfg.Sync.FlexMinutes <= 0 {
		cfg.Sync.FlexMinutes = 5
	}
	if cfg.Sync.FlexMinutes > cfg.Sync.PeriodMinutes {
		cfg.Sync.FlexMinutes = cfg.Sync.PeriodMinutes
	}
	cfg.Sync.Flex = time.Duration(cfg.Sync.FlexMinutes) * time.Minute
	if cfg.Sync.BackoffBaseSeconds <= 0 {
		cfg.Sync.BackoffBaseSeconds = 30
	}
	cfg.Sync.BackoffBase = time.Duration(cfg.Sync.BackoffBaseSeconds) * time.Second
	if cfg.Sync.BackoffCapMinutes <= 0 {
		cfg.Sync.BackoffCapMinutes = 300
	}
	cfg.Sync.BackoffCap = time.Duration(cfg.Sync.BackoffCapMinutes) * time.Minute
	if cfg.Sync.Workers <= 0 {
		log.Printf("sync.workers is not set or invalid; defaulting to 1")
		cfg.Sync.Workers = 1
	}
	if cfg.Sync.LowBatteryPercent <= 0 {
		cfg.Sync.LowBatteryPercent = 15
	}
	if cfg.Sync.PowerSupplyPath == "" {
		cfg.Sync.PowerSupplyPath = "/sys/class/power_supply"
	}

	if cfg.Connectivity.IntervalSeconds <= 0 {
		cfg.Connectivity.IntervalSeconds = 30
	}
	cfg.Connectivity.Interval = time.Duration(cfg.Connectivity.IntervalSeconds) * time.Second
	if cfg.Connectivity.ProbeURL == "" {
		cfg.Connectivity.ProbeURL = cfg.Remote.BaseURL
	}
}
