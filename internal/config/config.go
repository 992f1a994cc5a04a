// Package config loads process configuration from defaults, an optional
// YAML file and AGUI_-prefixed environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/edderleonardo/adk-agui-tutorial/internal/catalog"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/apperrors"
)

// SessionConfig controls session eviction.
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CatalogConfig selects the product database backend.
type CatalogConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Config is the full process configuration.
type Config struct {
	AppName      string        `mapstructure:"app_name"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Model        string        `mapstructure:"model"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	ToolTimeout  time.Duration `mapstructure:"tool_timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	Session      SessionConfig `mapstructure:"session"`
	Catalog      CatalogConfig `mapstructure:"catalog"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app_name", "shopping_assistant_app")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("tool_timeout", time.Duration(0))
	v.SetDefault("log_level", "info")
	v.SetDefault("session.idle_timeout", time.Hour)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("catalog.driver", catalog.DriverSQLite)
	v.SetDefault("catalog.dsn", "")

	v.SetEnvPrefix("AGUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The model credential follows the conventional variable name rather
	// than the AGUI_ prefix.
	if err := v.BindEnv("google_api_key", "GOOGLE_API_KEY"); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to bind environment", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("failed to read config file %s", path), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to parse configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints. The model credential is checked at
// serve time, where it is actually required.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval must be positive"))
	}
	switch c.Catalog.Driver {
	case catalog.DriverSQLite:
	case catalog.DriverPostgres:
		if c.Catalog.DSN == "" {
			errs = append(errs, fmt.Errorf("catalog.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.driver %q", c.Catalog.Driver))
	}
	if len(errs) > 0 {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "invalid configuration", errors.Join(errs...))
	}
	return nil
}
