package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Analytics AnalyticsConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// OpenAIConfig holds the text-completion service configuration
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	Timeout    time.Duration
}

// AnalyticsConfig holds adherence analytics tuning
type AnalyticsConfig struct {
	WindowDays    int
	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// SecurityConfig holds data-at-rest encryption configuration
type SecurityConfig struct {
	EncryptionKey string // 32 bytes, AES-256
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	v.SetDefault("openai.timeout", 12*time.Second)

	v.SetDefault("analytics.windowdays", 30)
	v.SetDefault("analytics.sweepinterval", 15*time.Minute)
	v.SetDefault("analytics.sweepgrace", 4*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("openai.endpoint", "OPENAI_ENDPOINT")
	v.BindEnv("openai.apikey", "OPENAI_API_KEY")
	v.BindEnv("openai.deployment", "OPENAI_DEPLOYMENT")

	v.BindEnv("analytics.windowdays", "ADHERENCE_WINDOW_DAYS")

	v.BindEnv("security.encryptionkey", "ENCRYPTION_KEY")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.OpenAI.Endpoint == "" {
		return fmt.Errorf("openai.endpoint is required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.apikey is required")
	}

	if c.OpenAI.Deployment == "" {
		return fmt.Errorf("openai.deployment is required")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("security.encryptionkey must be exactly 32 bytes")
	}

	if c.Analytics.WindowDays <= 0 {
		return fmt.Errorf("analytics.windowdays must be positive")
	}

	return nil
}
