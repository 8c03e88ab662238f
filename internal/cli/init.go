// Package cli provides common CLI initialization utilities shared by
// cmd/botspese and cmd/botspese-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"botspese/internal/config"
	"botspese/internal/log"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and installs
// it as the slog default.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:   lvl,
		Handler: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, sets up the logger at the
// configured level and validates the settings together with any binary
// specific requirement. Exits the process on failure.
func LoadAndValidateConfig(require ...func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)

	checks := append([]func(*config.Config) error{(*config.Config).Validate}, require...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed",
				log.FieldError, err.Error(),
				log.FieldErrorType, log.ErrorTypeConfiguration)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// the signal arrives cleanup runs with timeout as its deadline; done closes
// after it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
