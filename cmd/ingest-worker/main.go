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
		Use:   "ingest-worker",
		Short: "Freight invoice ingest worker",
		Long:  "Ingest Worker consumes raw EDI envelopes from the inbound topic and runs the audit pipeline",
		RunE:  runWorker,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the ingest worker",
		RunE:  runWorker,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	log.InfowCtx(ctx, "Starting Ingest Worker")

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
