// Package config loads the avina configuration from an optional YAML file
// and AVINA_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AVINA_DATABASE_URL
const EnvPrefix = "AVINA"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Usage    UsageConfig    `mapstructure:"usage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BodyLimit      string        `mapstructure:"body_limit" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxConnections  int           `mapstructure:"max_connections" validate:"gte=1"`
	MinConnections  int           `mapstructure:"min_connections" validate:"gte=0,ltefield=MaxConnections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	Issuer    string        `mapstructure:"issuer" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type QuotaConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gt=0"`
}

type UsageConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`
}

// DefaultConfig returns a configuration with every default filled in.
// Database URL and JWT secret have no usable default.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			BodyLimit:      "1M",
			RequestTimeout: 60 * time.Second,
			RateLimit:      20,
			CORSOrigins:    []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections:  25,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "avina",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Quota: QuotaConfig{
			CacheTTL:      5 * time.Second,
			PruneInterval: time.Minute,
		},
		Usage: UsageConfig{
			Concurrency: 8,
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.body_limit", cfg.Server.BodyLimit)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("server.cors_origins", cfg.Server.CORSOrigins)
	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.max_connections", cfg.Database.MaxConnections)
	v.SetDefault("database.min_connections", cfg.Database.MinConnections)
	v.SetDefault("database.max_conn_lifetime", cfg.Database.MaxConnLifetime)
	v.SetDefault("database.max_conn_idle_time", cfg.Database.MaxConnIdleTime)
	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
	v.SetDefault("auth.issuer", cfg.Auth.Issuer)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("quota.cache_ttl", cfg.Quota.CacheTTL)
	v.SetDefault("quota.prune_interval", cfg.Quota.PruneInterval)
	v.SetDefault("usage.concurrency", cfg.Usage.Concurrency)
}

// Load reads path if it is not empty, applies environment overrides and
// validates the result
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
