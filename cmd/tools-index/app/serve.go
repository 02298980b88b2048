package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	indexapp "github.com/projectenv/tools-index/internal/app"
	"github.com/projectenv/tools-index/internal/telemetry"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP",
		Long: `Serve the index file over HTTP.

With --refresh-interval the index is regenerated in the background on that
interval and the state of the last run is exposed on /v2/status. Without it the
file is served as written by the generate command.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().Duration("refresh-interval", 0, "Regenerate the index on this interval (0 disables)")
	cmd.Flags().String("status-file", "", "Persist the background generation status to this file")
	bindFlags(cmd.Flags(), "address", "refresh-interval", "status-file")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if viper.GetString("index-file") == "" {
		return errors.New("--index-file is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	opts := append(commonOptions(cfg),
		indexapp.WithAddress(viper.GetString("address")),
		indexapp.WithRefreshInterval(viper.GetDuration("refresh-interval")),
		indexapp.WithMeterProvider(tel.MeterProvider()),
		indexapp.WithTracerProvider(tel.TracerProvider()),
		indexapp.WithMetricsHandler(tel.Handler()),
	)
	if statusFile := viper.GetString("status-file"); statusFile != "" {
		opts = append(opts, indexapp.WithStatusFile(statusFile))
	}

	app, err := indexapp.NewServerApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	}

	if err := app.Stop(defaultGracefulTimeout); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errChan
}
