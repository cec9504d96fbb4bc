package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pratik-mahalle/incidents/internal/domain/oncall"
	"github.com/pratik-mahalle/incidents/internal/pkg/validator"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"log"`
	OnCall   OnCallConfig   `mapstructure:"oncall"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path        string        `mapstructure:"path" validate:"required"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error disabled"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output"`
}

// OnCallConfig contains the rotation roster and the cron expression
// marking shift handoffs.
type OnCallConfig struct {
	Roster  []string `mapstructure:"roster" validate:"min=1,unique,dive,required"`
	Handoff string   `mapstructure:"handoff" validate:"required,cron"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        DefaultDBPath(),
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "console",
			OutputPath: "stderr",
		},
		OnCall: OnCallConfig{
			Roster:  oncall.DefaultRoster(),
			Handoff: oncall.DefaultHandoff,
		},
	}
}

// DefaultDBPath is the per-user store location, ~/.incidents/incidents.db
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".incidents", "incidents.db")
	}
	return filepath.Join(home, ".incidents", "incidents.db")
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	def := Default()
	cfg := &Config{
		Database: DatabaseConfig{
			Path:        getEnv("INCIDENTS_DB_PATH", def.Database.Path),
			BusyTimeout: getEnvAsDuration("INCIDENTS_DB_BUSY_TIMEOUT", def.Database.BusyTimeout),
		},
		Logging: LoggingConfig{
			Level:      getEnv("INCIDENTS_LOG_LEVEL", def.Logging.Level),
			Format:     getEnv("INCIDENTS_LOG_FORMAT", def.Logging.Format),
			OutputPath: getEnv("INCIDENTS_LOG_OUTPUT", def.Logging.OutputPath),
		},
		OnCall: OnCallConfig{
			Roster:  getEnvAsList("INCIDENTS_ONCALL_ROSTER", def.OnCall.Roster),
			Handoff: getEnv("INCIDENTS_ONCALL_HANDOFF", def.OnCall.Handoff),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	errs := validator.New().Validate(c)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(validator.Messages(errs), "; "))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
