package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the pointstrade service.
type Config struct {
	Storage    Storage          `yaml:"storage"`
	Server     Server           `yaml:"server"`
	Alpaca     Alpaca           `yaml:"alpaca"`
	Logging    Logging          `yaml:"logging"`
	Notify     NotifyConfig     `yaml:"notify"`
	Settlement SettlementConfig `yaml:"settlement"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API. When the
// key is empty the broker notification sink degrades to log-only.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig holds the webhook endpoints and delivery parameters for the
// merchant and broker notification sinks.
type NotifyConfig struct {
	MerchantURL     string   `yaml:"merchant_url"`
	BrokerURL       string   `yaml:"broker_url"`
	Timeout         Duration `yaml:"timeout"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// SettlementConfig controls the delayed broker-confirm stage and the broker
// used when a merchant record names none.
type SettlementConfig struct {
	DefaultBroker     string   `yaml:"default_broker"`
	ConfirmDelay      Duration `yaml:"confirm_delay"`
	ConfirmMaxRetries int      `yaml:"confirm_max_retries"`
}

// LimitsConfig bounds a single redemption submission.
type LimitsConfig struct {
	MaxBasketLines    int   `yaml:"max_basket_lines"`
	MaxPointsPerOrder int64 `yaml:"max_points_per_order"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in values that must never be zero at runtime.
func applyDefaults(cfg *Config) {
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = Duration(10 * time.Second)
	}
	if cfg.Notify.RateLimitPerMin == 0 {
		cfg.Notify.RateLimitPerMin = 120
	}
	if cfg.Settlement.DefaultBroker == "" {
		cfg.Settlement.DefaultBroker = "alpaca"
	}
	if cfg.Settlement.ConfirmDelay == 0 {
		cfg.Settlement.ConfirmDelay = Duration(30 * time.Second)
	}
	if cfg.Settlement.ConfirmMaxRetries == 0 {
		cfg.Settlement.ConfirmMaxRetries = 5
	}
	if cfg.Limits.MaxBasketLines == 0 {
		cfg.Limits.MaxBasketLines = 20
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("MERCHANT_NOTIFY_URL"); v != "" {
		cfg.Notify.MerchantURL = v
	}
	if v := os.Getenv("BROKER_NOTIFY_URL"); v != "" {
		cfg.Notify.BrokerURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Canonical Alpaca SDK env vars take precedence.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
