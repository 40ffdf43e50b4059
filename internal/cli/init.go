// Package cli holds the startup steps shared by the fintrack binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Setup reads and validates the configuration and installs a logger for
// component at the configured level as the process default.
func Setup(component string) (*config.Config, *log.Logger, error) {
	cfg := config.Load()

	level, levelErr := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: component, Output: os.Stdout})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	if levelErr != nil {
		return cfg, logger, levelErr
	}
	return cfg, logger, nil
}

// MustSetup is LoadEnvFile plus Setup, exiting the process on failure.
func MustSetup(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg, logger, err := Setup(component)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend builds the storage backend selected by the configuration.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}
	return result, nil
}

// MustOpenBackend is OpenBackend, exiting the process on failure.
func MustOpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	result, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// ShutdownContext is cancelled on SIGINT or SIGTERM. The signal is logged.
func ShutdownContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
