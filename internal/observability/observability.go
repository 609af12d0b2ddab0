// Package observability configures the process-wide logging pipeline.
//
// Logs always go to stderr: stdout belongs to the stdio MCP transport and
// must carry protocol frames only. When an OTLP endpoint is configured via
// the standard OTEL_EXPORTER_OTLP_* environment variables, logs are exported
// through the OpenTelemetry log bridge instead, filtered to the configured
// minimum severity.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/term"
)

const instrumentationName = "threejsmcp"

// Instrument installs the default slog logger according to the configured
// level and format ("text", "json", or "" for TTY autodetection).
func Instrument(level slog.Level, format string) error {
	if exporterConfigured() {
		return instrumentOTel(level)
	}

	handler, err := stderrHandler(level, format)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func stderrHandler(level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return slog.NewTextHandler(os.Stderr, opts), nil
		}
		return slog.NewJSONHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// instrumentOTel bridges slog to an OpenTelemetry log exporter.
func instrumentOTel(level slog.Level) error {
	ctx := context.Background()

	exporter, err := newExporter(ctx)
	if err != nil {
		return fmt.Errorf("creating OTLP log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(
		sdklog.NewBatchProcessor(exporter),
		severityFor(level),
	)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	handler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
	slog.SetDefault(slog.New(handler))
	return nil
}

func exporterConfigured() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_LOGS_EXPORTER") == "stdout"
}

func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_LOGS_EXPORTER") == "stdout" {
		return stdoutlog.New()
	}
	switch protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); protocol {
	case "grpc":
		return otlploggrpc.New(ctx)
	case "", "http/protobuf":
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
