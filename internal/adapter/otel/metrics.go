package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "toolgate"

// Metrics holds all ToolGate metric instruments.
type Metrics struct {
	CallsEnqueued          metric.Int64Counter
	CallsScheduled         metric.Int64Counter
	CallsCompleted         metric.Int64Counter
	ConfirmationsRequested metric.Int64Counter
	ConfirmationsResolved  metric.Int64Counter
	ApprovalLatency        metric.Float64Histogram
	ExecutionDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CallsEnqueued, err = meter.Int64Counter("toolgate.calls.enqueued",
		metric.WithDescription("Number of tool calls enqueued"))
	if err != nil {
		return nil, err
	}

	m.CallsScheduled, err = meter.Int64Counter("toolgate.calls.scheduled",
		metric.WithDescription("Number of tool calls that reached scheduled"))
	if err != nil {
		return nil, err
	}

	m.CallsCompleted, err = meter.Int64Counter("toolgate.calls.completed",
		metric.WithDescription("Number of tool calls that reached a terminal state"))
	if err != nil {
		return nil, err
	}

	m.ConfirmationsRequested, err = meter.Int64Counter("toolgate.confirmations.requested",
		metric.WithDescription("Number of confirmation requests published"))
	if err != nil {
		return nil, err
	}

	m.ConfirmationsResolved, err = meter.Int64Counter("toolgate.confirmations.resolved",
		metric.WithDescription("Number of confirmation responses accepted"))
	if err != nil {
		return nil, err
	}

	m.ApprovalLatency, err = meter.Float64Histogram("toolgate.approval.latency_seconds",
		metric.WithDescription("Time a call spent awaiting approval"))
	if err != nil {
		return nil, err
	}

	m.ExecutionDuration, err = meter.Float64Histogram("toolgate.execution.duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
