package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig contains storage-related configuration
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

// BatchConfig contains batching configuration
type BatchConfig struct {
	// IntervalMs is the delay between scheduled commits, in milliseconds.
	IntervalMs int `mapstructure:"interval_ms"`
}

// Interval returns the commit interval as a duration.
func (c BatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/batchkv")
	}

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("BATCHKV")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate and set computed values
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Storage defaults
	viper.SetDefault("storage.backend", "badger")
	viper.SetDefault("storage.data_dir", "./data")

	// Batch defaults
	viper.SetDefault("batch.interval_ms", 10)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	config.Storage.DataDir = filepath.Clean(config.Storage.DataDir)

	switch config.Storage.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("storage.backend must be badger or memory, got %q", config.Storage.Backend)
	}

	if config.Batch.IntervalMs <= 0 {
		return fmt.Errorf("batch.interval_ms must be positive, got %d", config.Batch.IntervalMs)
	}

	return nil
}

// Default returns a default configuration
func Default() *Config {
	setDefaults()

	var config Config
	viper.Unmarshal(&config)
	validate(&config)

	return &config
}
