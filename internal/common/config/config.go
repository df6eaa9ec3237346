// Package config provides configuration management for GeoShield
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Service identification
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`

	// Storage
	RedisURL string `mapstructure:"redis_url"`

	// Offline mode disables every outbound HTTP call; the intel gateway
	// serves canned profiles and the assistant summarizes locally.
	OfflineMode bool `mapstructure:"offline_mode"`

	// Upstream credentials
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`
	VTAPIKey     string `mapstructure:"vt_api_key"`
	OTXAPIKey    string `mapstructure:"otx_api_key"`

	// Demo login credentials
	DemoUsername string `mapstructure:"demo_username"`
	DemoPassword string `mapstructure:"demo_password"`

	// Risk evaluation
	HomeCountry string `mapstructure:"home_country"`

	// Upstream HTTP behaviour
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Intel cache TTLs
	IntelCacheTTL         time.Duration `mapstructure:"intel_cache_ttl"`
	IntelDegradedCacheTTL time.Duration `mapstructure:"intel_degraded_cache_ttl"`

	// Security settings
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
}

// Load reads configuration from file and environment variables
func Load(serviceName string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/geoshield")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("GEOSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Also support non-prefixed env vars for common settings
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.ServiceName = serviceName

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Service defaults
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)

	// Storage defaults
	v.SetDefault("redis_url", "redis://localhost:6379")

	// Offline mode: on by default so the demo runs with no credentials
	v.SetDefault("offline_mode", true)

	// Upstream defaults
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("http_timeout", 5*time.Second)

	// Intel cache: long TTL for complete results, short TTL for lookups
	// that came back with one or more sub-results degraded
	v.SetDefault("intel_cache_ttl", 24*time.Hour)
	v.SetDefault("intel_degraded_cache_ttl", 5*time.Minute)

	// Demo credentials
	v.SetDefault("demo_username", "demo")
	v.SetDefault("demo_password", "P@ssw0rd!")

	// Risk defaults
	v.SetDefault("home_country", "Saudi Arabia")

	// CORS defaults
	v.SetDefault("cors_allowed_origins", "*")
}

func bindEnvVars(v *viper.Viper) {
	// Common environment variable mappings
	envMappings := map[string]string{
		"environment":    "APP_ENV",
		"log_level":      "LOG_LEVEL",
		"port":           "PORT",
		"redis_url":      "REDIS_URL",
		"offline_mode":   "OFFLINE_MODE",
		"openai_api_key": "OPENAI_API_KEY",
		"openai_model":   "OPENAI_MODEL",
		"vt_api_key":     "VT_API_KEY",
		"otx_api_key":    "OTX_API_KEY",
		"home_country":   "HOME_COUNTRY",

		"cors_allowed_origins": "CORS_ALLOWED_ORIGINS",
	}

	for key, env := range envMappings {
		v.BindEnv(key, env)
	}
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if cfg.IntelCacheTTL <= 0 || cfg.IntelDegradedCacheTTL <= 0 {
		return fmt.Errorf("intel cache TTLs must be positive")
	}
	return nil
}

// GetCORSOrigins returns CORS allowed origins as a slice
func (c *Config) GetCORSOrigins() []string {
	if c.CORSAllowedOrigins == "*" {
		return []string{"*"}
	}
	return strings.Split(c.CORSAllowedOrigins, ",")
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
