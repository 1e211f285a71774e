package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"batchkv/config"
	"batchkv/pkg/batch"
	"batchkv/storage"
)

var (
	configPath string
	dataDir    string
	intervalMs int
	timeout    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "batchkv",
		Short: "batchkv - batched transactional key-value store CLI",
		Long:  `batchkv coalesces key-value operations into periodic bulk transactions against a local store`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().IntVar(&intervalMs, "interval", 0, "Commit interval in milliseconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 30, "Operation timeout in seconds")

	// Add subcommands
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(delCmd())
	rootCmd.AddCommand(destroyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies command line overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}

	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if intervalMs > 0 {
		cfg.Batch.IntervalMs = intervalMs
	}

	return cfg
}

// buildLogger builds a zap logger from the logging configuration.
func buildLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openEngine opens the batching engine over the configured backend.
func openEngine(cfg *config.Config, logger *zap.Logger) *batch.Engine {
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "memory":
		backend = storage.NewMemoryBackend()
	default:
		backend = storage.NewBadgerBackend(cfg.Storage.DataDir)
	}

	return batch.Open(backend, batch.Options{
		Interval: cfg.Batch.Interval(),
		Logger:   logger,
	})
}

func opTimeout() time.Duration {
	return time.Duration(timeout) * time.Second
}
