package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents pool configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Pool     PoolConfig     `yaml:"pool"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig represents database client settings
type DatabaseConfig struct {
	// Driver selects the connector: postgres (default), mysql or sqlite3
	Driver string `yaml:"driver"`
	// DSN is passed through verbatim to the database client
	DSN string `yaml:"dsn"`
}

// PoolConfig represents connection pool settings
type PoolConfig struct {
	Size                  int `yaml:"size"`
	AcquireTimeoutSeconds int `yaml:"acquire_timeout_seconds"` // 0 = wait indefinitely
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "postgres",
			DSN:    "host=localhost port=5432 dbname=postgres",
		},
		Pool: PoolConfig{
			Size:                  100,
			AcquireTimeoutSeconds: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Load from file if provided
	if configPath != "" {
		if err := loadFromFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	applyEnvOverrides(config)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return err
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(config *Config) {
	if dsn := os.Getenv("PGPOOL_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if driver := os.Getenv("PGPOOL_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}

	if size := os.Getenv("PGPOOL_SIZE"); size != "" {
		if val, err := strconv.Atoi(size); err == nil {
			config.Pool.Size = val
		}
	}

	if timeout := os.Getenv("PGPOOL_ACQUIRE_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil {
			config.Pool.AcquireTimeoutSeconds = val
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	if !isValidDriver(c.Database.Driver) {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Pool.Size < 1 {
		return fmt.Errorf("pool size must be at least 1")
	}

	if c.Pool.AcquireTimeoutSeconds < 0 {
		return fmt.Errorf("acquire timeout cannot be negative")
	}

	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// isValidDriver checks if the driver has a connector
func isValidDriver(driver string) bool {
	switch driver {
	case "postgres", "pgx", "mysql", "sqlite3", "":
		return true
	}
	return false
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	valid := []string{"debug", "info", "warn", "error"}
	level = strings.ToLower(level)
	for _, v := range valid {
		if level == v {
			return true
		}
	}
	return false
}

// String returns a string representation of the configuration (for logging)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Driver: %s, PoolSize: %d, LogLevel: %s}",
		c.Database.Driver, c.Pool.Size, c.Logging.Level)
}
