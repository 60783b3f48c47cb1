// Package main is the entry point for the SOVDScope console.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sovdscope/internal/cli"
	"sovdscope/internal/config"
	"sovdscope/internal/console"
	"sovdscope/internal/database"
	"sovdscope/internal/logging"
	"sovdscope/internal/realtime"
	"sovdscope/internal/scheduler"
	"sovdscope/internal/server"
	"sovdscope/internal/telemetry"
	"sovdscope/internal/version"
)

func main() {
	// Load .env if it exists (development convenience)
	if err := godotenv.Load(); err != nil {
		if os.Getenv("DEBUG") == "true" {
			log.Printf("No .env file found or error loading it: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	manager := cli.NewManagerAdapter(cfg, runServer)
	os.Exit(cli.Execute(os.Args[1:], manager, os.Stdout, os.Stderr))
}

// runServer wires the full console stack and runs it until a signal or a
// fatal server error.
func runServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// File logging only in development; production logs to stdout for the
	// process supervisor to capture.
	isDevelopment := os.Getenv("SOVDSCOPE_ENV") == "development" || os.Getenv("DEBUG") == "true"
	if isDevelopment {
		if err := logging.Initialize("./logs"); err != nil {
			log.Printf("Warning: Failed to initialize file logging: %v", err)
		} else {
			defer logging.Close()
		}
	}

	logging.Info("Starting sovdscope %s", version.Get().Version)
	logging.Info("Configuration: %s", cfg)

	shutdownTelemetry, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    "sovdscope",
		ServiceVersion: version.Get().Version,
		Environment:    os.Getenv("SOVDSCOPE_ENV"),
		Endpoint:       cfg.TelemetryEndpoint,
		Insecure:       true,
	})
	if err != nil {
		logging.Warning("Failed to initialize telemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logging.Warning("Error shutting down telemetry: %v", err)
			}
		}()
	}

	// Persistence is a convenience (remembered server, history); the console
	// works without it.
	var store *database.Store
	if cfg.DatabasePath != "" {
		store, err = database.Open(cfg.DatabasePath)
		if err != nil {
			logging.Warning("Failed to open database, continuing without persistence: %v", err)
			store = nil
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					logging.Warning("Failed to close database: %v", err)
				}
			}()
		}
	}

	metrics := realtime.NewMetrics()

	srv, err := server.New(cfg, store, metrics)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(cfg, srv.Console(), metrics)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional auto-connect to the configured default server
	if cfg.ServerURL != "" {
		go autoConnect(ctx, srv.Console(), cfg)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func autoConnect(ctx context.Context, c *console.Console, cfg *config.Config) {
	connectCtx, cancel := context.WithTimeout(ctx, config.DataTimeout)
	defer cancel()

	if err := c.Connect(connectCtx, cfg.ServerURL, cfg.BasePath); err != nil {
		logging.Warning("Auto-connect to %s failed: %v", cfg.ServerURL, err)
	}
}
