package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ediaudit/internal/config"
	"ediaudit/internal/logger"
	"ediaudit/pkg/logging"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "audit-service",
		Short: "Freight invoice audit API",
		Long:  "Audit Service exposes the EDI decode, ingest and invoice query API",
		RunE:  runServer,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the audit service",
		RunE:  runServer,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	earlyLog := logging.NewEarlyLog()

	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
		return fmt.Errorf("config file is required")
	}

	cfg, err := config.Load(path)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.InfowCtx(ctx, "Starting Audit Service")

	app := NewApp(cfg, log)
	if err := app.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.ErrorwCtx(ctx, "Application error", "error", err)
		return err
	}
	return nil
}
