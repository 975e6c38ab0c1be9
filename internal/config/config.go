// Package config provides configuration structures and loading
// functionality for the access control service.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config is the main configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Site       SiteConfig       `mapstructure:"site"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" envconfig:"SERVER_LISTEN" default:":8080"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

// SiteConfig identifies the protected site. URL is used to build self
// links in resource representations.
type SiteConfig struct {
	URL string `mapstructure:"url" envconfig:"SITE_URL" default:"http://localhost:8080"`
}

// AuthConfig controls how authorization checks consume identity and
// what happens on paths no location governs. Authentication itself is
// external: the frontend verifies the user and forwards the identity
// in a trusted header.
type AuthConfig struct {
	IdentityHeader    string `mapstructure:"identity_header" envconfig:"AUTH_IDENTITY_HEADER" default:"X-Wwwhisper-User"`
	UnprotectedAction string `mapstructure:"unprotected_action" envconfig:"AUTH_UNPROTECTED_ACTION" default:"deny"` // allow, deny
}

// AdminConfig protects the administrative API. TokenHash is a bcrypt
// hash of the bearer token admin clients present; when empty the admin
// API is open (local or test deployments only).
type AdminConfig struct {
	TokenHash string `mapstructure:"token_hash" envconfig:"ADMIN_TOKEN_HASH"`
}

// DatabaseConfig specifies the persistence backend. With Enabled set
// to false state is kept in memory and lost on restart.
type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled" envconfig:"DB_ENABLED" default:"false"`
	Driver           string        `mapstructure:"driver" envconfig:"DB_DRIVER" default:"postgres"`
	ConnectionString string        `mapstructure:"connection_string" envconfig:"DB_CONNECTION_STRING"`
	MaxOpenConns     int           `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// MonitoringConfig contains monitoring and profiling settings.
type MonitoringConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled" envconfig:"MONITORING_METRICS_ENABLED" default:"true"`
	PprofEnabled   bool `mapstructure:"pprof_enabled" envconfig:"MONITORING_PPROF_ENABLED" default:"false"`
}

// SentryConfig contains Sentry error tracking settings.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled" envconfig:"SENTRY_ENABLED" default:"false"`
	DSN              string  `mapstructure:"dsn" envconfig:"SENTRY_DSN"`
	Environment      string  `mapstructure:"environment" envconfig:"SENTRY_ENVIRONMENT" default:"production"`
	SampleRate       float64 `mapstructure:"sample_rate" envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
	AttachStacktrace bool    `mapstructure:"attach_stacktrace" envconfig:"SENTRY_ATTACH_STACKTRACE" default:"true"`
	Debug            bool    `mapstructure:"debug" envconfig:"SENTRY_DEBUG" default:"false"`
	Release          string  `mapstructure:"release" envconfig:"SENTRY_RELEASE"`
	ServerName       string  `mapstructure:"server_name" envconfig:"SENTRY_SERVER_NAME"`
}

// Load reads and validates configuration from a file or environment
// variables. If configFile is empty, only environment variables are
// processed.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Site.URL == "" {
		return fmt.Errorf("site url is required")
	}

	switch cfg.Auth.UnprotectedAction {
	case "allow", "deny":
	default:
		return fmt.Errorf("unsupported unprotected action: %s (want allow or deny)",
			cfg.Auth.UnprotectedAction)
	}

	if cfg.Auth.IdentityHeader == "" {
		return fmt.Errorf("identity header is required")
	}

	if cfg.Database.Enabled && cfg.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string is required when the database is enabled")
	}

	return nil
}
