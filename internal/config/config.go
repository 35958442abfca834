// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHoldDuration     = 15 * time.Minute
	DefaultMaxOccurrences   = 52
	DefaultSweepCron        = "* * * * *"
	DefaultOperationTimeout = 5 * time.Second
	DefaultPhoneRegion      = "US"

	DefaultRequestsPerSecond = 100
	DefaultBurst             = 10
)

type DatabaseConfig struct {
	Driver            string `yaml:"driver"`
	Filename          string `yaml:"filename"`
	BusyTimeoutMillis int    `yaml:"busy_timeout_ms"`
}

type BookingConfig struct {
	// HoldDuration is how long a PENDING booking keeps its slot awaiting payment.
	HoldDuration time.Duration `yaml:"hold_duration"`
	// MaxOccurrences caps the size of a recurring series.
	MaxOccurrences int `yaml:"max_occurrences"`
	// SweepCron schedules the expired-hold sweep (standard 5-field cron).
	SweepCron        string        `yaml:"sweep_cron"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	// PhoneRegion is the default region for contact numbers given without a country code.
	PhoneRegion string `yaml:"phone_region"`
}

// RateLimitConfig bounds request throughput and how fast unpaid holds may be
// placed. Zero values use the defaults.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	HoldCooldown      time.Duration `yaml:"hold_cooldown"`
	HoldsPerHour      int           `yaml:"holds_per_hour"`
	HoldsPerIPPerHour int           `yaml:"holds_per_ip_per_hour"`
	// TrustProxy reads the client IP from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SecretKey       string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Booking BookingConfig `yaml:"booking"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Payment struct {
		// CallbackToken guards the confirmation endpoints when set.
		CallbackToken string `yaml:"-"` // Loaded from environment
	} `yaml:"-"`

	Features struct {
		EnableDebug bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Payment.CallbackToken = os.Getenv("PAYMENT_CALLBACK_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills booking defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout == 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.Booking.HoldDuration == 0 {
		c.Booking.HoldDuration = DefaultHoldDuration
	}
	if c.Booking.MaxOccurrences == 0 {
		c.Booking.MaxOccurrences = DefaultMaxOccurrences
	}
	if c.Booking.SweepCron == "" {
		c.Booking.SweepCron = DefaultSweepCron
	}
	if c.Booking.OperationTimeout == 0 {
		c.Booking.OperationTimeout = DefaultOperationTimeout
	}
	if c.Booking.PhoneRegion == "" {
		c.Booking.PhoneRegion = DefaultPhoneRegion
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultBurst
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.HoldDuration <= 0 {
		return fmt.Errorf("booking hold_duration must be positive")
	}
	if c.Booking.MaxOccurrences <= 0 {
		return fmt.Errorf("booking max_occurrences must be positive")
	}
	if c.Booking.OperationTimeout <= 0 {
		return fmt.Errorf("booking operation_timeout must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 ||
		c.RateLimit.HoldCooldown < 0 || c.RateLimit.HoldsPerHour < 0 || c.RateLimit.HoldsPerIPPerHour < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if _, err := cron.ParseStandard(c.Booking.SweepCron); err != nil {
		return fmt.Errorf("booking sweep_cron %q is invalid: %w", c.Booking.SweepCron, err)
	}

	return nil
}
