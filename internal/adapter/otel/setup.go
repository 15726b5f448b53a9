// Package otel provides metric instruments, span helpers, and a stub for
// OpenTelemetry exporter setup.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. Deployments that want
// OTLP export configure a global TracerProvider/MeterProvider before
// calling into ToolGate; the instruments here pick it up automatically.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Debug("otel: using globally registered providers", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}
