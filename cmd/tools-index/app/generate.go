package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	indexapp "github.com/projectenv/tools-index/internal/app"
	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/telemetry"
)

const telemetryShutdownTimeout = 10 * time.Second

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch every datasource and write the index",
		Long: `Fetch the release feeds of every enabled datasource, merge them into the
previous index, validate new download URLs and write the v2 index (and optionally
the legacy v1 index).

The run fails as a whole when any datasource fails; the previous index is then
left untouched.`,
		RunE: runGenerate,
	}

	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	bindFlags(cmd.Flags(), "metrics-file")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	indexFile := viper.GetString("index-file")
	if indexFile == "" {
		return errors.New("--index-file is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyMetricsFile(cfg, viper.GetString("metrics-file"))

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	pipeline, err := indexapp.NewPipeline(ctx, append(commonOptions(cfg),
		indexapp.WithMeterProvider(tel.MeterProvider()),
		indexapp.WithTracerProvider(tel.TracerProvider()),
	)...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result, err := pipeline.Generate(ctx)
	if werr := tel.WriteTextfile(); werr != nil {
		slog.Error("Failed to write metrics", "error", werr)
	}
	if err != nil {
		slog.Error("Index generation failed", "error", err)
		return err
	}

	slog.Info("Index generated",
		"run_id", result.RunID,
		"path", indexFile,
		"urls", result.URLCount,
		"rejected", result.RejectedCount)
	return nil
}

// loadConfig reads --config, falling back to the built-in datasources.
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// applyMetricsFile enables metrics with the given textfile, overriding the configuration.
func applyMetricsFile(cfg *config.Config, path string) {
	if path == "" {
		return
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = &telemetry.Config{}
	}
	cfg.Telemetry.Enabled = true
	if cfg.Telemetry.Metrics == nil {
		cfg.Telemetry.Metrics = &telemetry.MetricsConfig{}
	}
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Metrics.TextfilePath = path
}

// commonOptions maps the shared persistent flags to application options.
func commonOptions(cfg *config.Config) []indexapp.AppOption {
	opts := []indexapp.AppOption{
		indexapp.WithConfig(cfg),
		indexapp.WithIndexFile(viper.GetString("index-file")),
		indexapp.WithTools(viper.GetStringSlice("tools")...),
	}
	if legacy := viper.GetString("legacy-index-file"); legacy != "" {
		opts = append(opts, indexapp.WithLegacyIndexFile(legacy))
	}
	if token := viper.GetString("github-token"); token != "" {
		opts = append(opts, indexapp.WithGitHubToken(token))
	}
	return opts
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		slog.Error("Failed to shutdown telemetry", "error", err)
	}
}
