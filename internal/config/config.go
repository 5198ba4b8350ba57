// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/govalues/decimal"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service. The posting engine only
// consumes DefaultROE (the seed exchange rate for foreign-currency vouchers);
// the rest is wiring and company identity surfaced read-only over HTTP.
type Config struct {
	Addr         string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout  time.Duration `envconfig:"APP_IDLE_TIMEOUT" default:"60s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DevSeed     bool   `envconfig:"DEV_SEED"`

	CompanyName   string   `envconfig:"COMPANY_NAME" default:"Safar Travels & Tours"`
	LocalCurrency string   `envconfig:"LOCAL_CURRENCY" default:"PKR"`
	DefaultROE    string   `envconfig:"DEFAULT_ROE" default:"1"`
	Banks         []string `envconfig:"BANKS" default:"Meezan Bank,HBL,UBL"`

	defaultROE decimal.Decimal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	roe, err := decimal.Parse(cfg.DefaultROE)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_ROE: %w", err)
	}
	if roe.Sign() <= 0 {
		return nil, fmt.Errorf("DEFAULT_ROE must be positive, got %s", cfg.DefaultROE)
	}
	cfg.defaultROE = roe
	return &cfg, nil
}

// ROE returns the parsed default exchange rate.
func (c *Config) ROE() decimal.Decimal { return c.defaultROE }
