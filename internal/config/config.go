// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultServiceURL = "https://payment.paytrail.com"

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PaymentConfig struct {
	Paytrail struct {
		MerchantID     string        `yaml:"merchant_id"`
		MerchantSecret string        `yaml:"merchant_secret"`
		ServiceURL     string        `yaml:"service_url"`
		Timeout        time.Duration `yaml:"timeout"`
		RateLimitRPS   float64       `yaml:"rate_limit_rps"` // 0 disables
		RateLimitBurst int           `yaml:"rate_limit_burst"`
		Debug          bool          `yaml:"debug"` // log every gateway round trip
		Currency       string        `yaml:"currency"`
		Locale         string        `yaml:"locale"`
	} `yaml:"paytrail"`
	URLs struct {
		Success      string `yaml:"success"`
		Failure      string `yaml:"failure"`
		Notification string `yaml:"notification"`
		Pending      string `yaml:"pending"`
	} `yaml:"urls"`
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
	Payment PaymentConfig `yaml:"payment"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies .env / environment overrides
// and defaults. A missing file is tolerated when the environment supplies credentials.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PAYTRAIL_MERCHANT_ID")); v != "" {
		cfg.Payment.Paytrail.MerchantID = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYTRAIL_MERCHANT_SECRET")); v != "" {
		cfg.Payment.Paytrail.MerchantSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYTRAIL_SERVICE_URL")); v != "" {
		cfg.Payment.Paytrail.ServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	p := &cfg.Payment.Paytrail
	if p.ServiceURL == "" {
		p.ServiceURL = DefaultServiceURL
	}
	p.ServiceURL = strings.TrimRight(p.ServiceURL, "/")
	if p.Timeout <= 0 {
		p.Timeout = 15 * time.Second
	}
	if p.RateLimitRPS > 0 && p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 1
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if p.Locale == "" {
		p.Locale = "fi_FI"
	}
}

// Validate performs minimal sanity checks.
func (c *Config) Validate() error {
	if c.Payment.Paytrail.MerchantID == "" {
		return errors.New("payment.paytrail.merchant_id is required")
	}
	if c.Payment.Paytrail.MerchantSecret == "" {
		return errors.New("payment.paytrail.merchant_secret is required")
	}
	if c.Payment.Paytrail.RateLimitRPS < 0 {
		return errors.New("payment.paytrail.rate_limit_rps must not be negative")
	}
	return nil
}
