// Package main is the entry point for the tools-index CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/projectenv/tools-index/cmd/tools-index/app"
	"github.com/projectenv/tools-index/internal/config"
)

// getLogLevel parses the TOOLS_INDEX_LOG_LEVEL environment variable and returns the zap level to log at.
// Defaults to info if unset or invalid.
func getLogLevel() zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	switch strings.ToLower(levelStr) {
	case "debug":
		return app.DebugLevel
	case "info", "warn", "warning", "":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", levelStr)
		return zapcore.InfoLevel
	}
}

// traceHandler wraps an slog.Handler to inject OpenTelemetry trace_id and span_id
// into every log record.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	// Logs go to stderr so stdout stays clean for command output.
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	level := zap.NewAtomicLevelAt(getLogLevel())
	zl, err := newLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	handler := &traceHandler{Handler: logr.ToSlogHandler(zapr.NewLogger(zl))}
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd(level).Execute(); err != nil {
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}
