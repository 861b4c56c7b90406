// Package config provides application configuration with multi-source
// priority: environment variables override the config file, which
// overrides defaults.
//
// Sources (highest to lowest):
//  1. Environment variables with the GOALCHAT_ prefix
//  2. Config file (./goalchat.yaml or ~/.goalchat/config.yaml)
//  3. Defaults
//
// Secrets (auth secret, Gemini API key) are never logged.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for validation failures.
var (
	// ErrMissingAuthSecret indicates no signing secret is configured.
	ErrMissingAuthSecret = errors.New("missing auth secret")

	// ErrShortAuthSecret indicates the signing secret is shorter than 32 bytes.
	ErrShortAuthSecret = errors.New("auth secret must be at least 32 bytes")

	// ErrInvalidAddr indicates the listen address is empty or malformed.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidRateBurst indicates a negative rate limiter burst.
	ErrInvalidRateBurst = errors.New("invalid rate burst")
)

// Defaults.
const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRateBurst = 60
	DefaultLogLevel  = "info"
)

// Config stores application configuration.
type Config struct {
	// HTTP server
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst"`

	// Identity
	AuthSecret string `mapstructure:"auth_secret"`

	// Document store. Empty project selects the in-memory store,
	// which is only suitable for development.
	FirestoreProject string `mapstructure:"firestore_project"`

	// Gemini. Empty API key disables the chat proxy endpoint.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Tracing. Empty endpoint disables the OTLP exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Environment  string `mapstructure:"environment"`
}

// Load reads configuration from all sources.
// A missing config file is not an error; defaults and environment apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", DefaultRateBurst)
	v.SetDefault("gemini_model", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_json", false)
	v.SetDefault("service_name", "goalchat")
	v.SetDefault("environment", "dev")

	v.SetConfigName("goalchat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.goalchat")

	v.SetEnvPrefix("GOALCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for the serve command.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return ErrInvalidAddr
	}
	if c.AuthSecret == "" {
		return ErrMissingAuthSecret
	}
	if len(c.AuthSecret) < 32 {
		return ErrShortAuthSecret
	}
	if c.RateBurst < 0 {
		return ErrInvalidRateBurst
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}
