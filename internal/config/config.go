package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the external stats provider settings.
type ProviderConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MinDelay      time.Duration `yaml:"min_delay"` // rate budget pause before every request
}

// Config is the full application configuration.
type Config struct {
	ListenAddr     string         `yaml:"listen_addr"`
	DatabaseURL    string         `yaml:"database_url"`
	LogLevel       string         `yaml:"log_level"`
	Season         int            `yaml:"season"`
	UpdateSchedule string         `yaml:"update_schedule"` // cron expression, empty disables scheduled updates
	TaskRetention  int            `yaml:"task_retention"`
	Provider       ProviderConfig `yaml:"provider"`
}

// Default returns the configuration defaults applied before the file and
// environment are merged in.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		DatabaseURL:   "sqlite://./statsync.db",
		LogLevel:      "info",
		Season:        time.Now().Year(),
		TaskRetention: 50,
		Provider: ProviderConfig{
			BaseURL:       "https://api.statsfeed.example.com",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			BaseDelay:     500 * time.Millisecond,
			MinDelay:      250 * time.Millisecond,
		},
	}
}

// Load reads the YAML config file at path (skipped when empty or missing)
// and applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnvString("LISTEN_ADDR", c.ListenAddr)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.Season = getEnvInt("SEASON", c.Season)
	c.UpdateSchedule = getEnvString("UPDATE_SCHEDULE", c.UpdateSchedule)
	c.TaskRetention = getEnvInt("TASK_RETENTION", c.TaskRetention)

	c.Provider.BaseURL = getEnvString("PROVIDER_BASE_URL", c.Provider.BaseURL)
	c.Provider.APIKey = getEnvString("PROVIDER_API_KEY", c.Provider.APIKey)
	c.Provider.Timeout = getEnvDuration("PROVIDER_TIMEOUT", c.Provider.Timeout)
	c.Provider.RetryAttempts = getEnvInt("PROVIDER_RETRY_ATTEMPTS", c.Provider.RetryAttempts)
	c.Provider.BaseDelay = getEnvDuration("PROVIDER_BASE_DELAY", c.Provider.BaseDelay)
	c.Provider.MinDelay = getEnvDuration("PROVIDER_MIN_DELAY", c.Provider.MinDelay)
}

func (c *Config) validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base_url is required")
	}
	if c.Provider.RetryAttempts < 1 {
		return fmt.Errorf("provider retry_attempts must be at least 1, got %d", c.Provider.RetryAttempts)
	}
	if c.TaskRetention < 1 {
		return fmt.Errorf("task_retention must be at least 1, got %d", c.TaskRetention)
	}
	if c.Season < 1900 {
		return fmt.Errorf("season %d is not a plausible year", c.Season)
	}
	return nil
}

// getEnvString retrieves a string from environment variable with default fallback
func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration from environment variable with default fallback
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultValue
}
