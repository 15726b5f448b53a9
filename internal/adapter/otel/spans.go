package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "toolgate"

// StartCallSpan starts a span covering one tool call's execution.
func StartCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", callID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartConfirmationSpan starts a span covering one confirmation round trip.
func StartConfirmationSpan(ctx context.Context, correlationID, callID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "confirmation",
		trace.WithAttributes(
			attribute.String("confirmation.correlation_id", correlationID),
			attribute.String("toolcall.id", callID),
		),
	)
}
