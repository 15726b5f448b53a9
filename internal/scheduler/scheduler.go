package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	tgotel "github.com/Strob0t/ToolGate/internal/adapter/otel"
	"github.com/Strob0t/ToolGate/internal/adapter/ws"
	"github.com/Strob0t/ToolGate/internal/bus"
	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/port/confirmbus"
)

// Broadcaster pushes events to connected clients. Satisfied by ws.Hub.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Scheduler drives tool calls through the state manager. It owns the
// confirmation channel (decisions resolve back into the state machine
// through it), finalizes terminal calls into the completed batch, and
// runs scheduled calls on a bounded worker pool.
type Scheduler struct {
	state    *StateManager
	registry call.Registry
	channel  *bus.Bus
	hub      Broadcaster
	metrics  *tgotel.Metrics
	workers  int
	wake     chan struct{}

	mu           sync.Mutex
	pendingSince map[string]pendingApproval
}

// pendingApproval tracks one outstanding confirmation round trip.
type pendingApproval struct {
	since time.Time
	span  trace.Span
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBroadcaster attaches an event broadcaster for call status updates.
func WithBroadcaster(h Broadcaster) Option {
	return func(s *Scheduler) { s.hub = h }
}

// WithMetrics attaches metric instruments.
func WithMetrics(m *tgotel.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithWorkers bounds the execution worker pool (default 4).
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Scheduler resolving tools through registry.
func New(registry call.Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		state:        NewStateManager(registry),
		registry:     registry,
		workers:      4,
		wake:         make(chan struct{}, 1),
		pendingSince: make(map[string]pendingApproval),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.channel = bus.New(s.applyDecision)
	return s
}

// State exposes the state manager's query surface.
func (s *Scheduler) State() *StateManager { return s.state }

// Confirmations returns the confirmation channel a decision source
// subscribes to.
func (s *Scheduler) Confirmations() confirmbus.Channel { return s.channel }

// Schedule enqueues a batch of requests and advances them out of
// validation: confirmation requests for calls that need approval are
// published on the confirmation channel, validation failures are
// finalized immediately. Returns copies of the calls that changed state.
func (s *Scheduler) Schedule(ctx context.Context, requests []call.ToolCallRequest) ([]call.ToolCall, error) {
	if err := s.state.Enqueue(requests); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.CallsEnqueued.Add(ctx, int64(len(requests)))
	}

	changed, confirmations := s.state.Dequeue()

	for _, c := range changed {
		s.broadcastStatus(ctx, c)
		switch c.Status {
		case call.StatusScheduled:
			if s.metrics != nil {
				s.metrics.CallsScheduled.Add(ctx, 1, metric.WithAttributes(
					attribute.String("tool", c.Request.Tool),
				))
			}
		case call.StatusError:
			s.finalize(ctx, c.Request.CallID)
		}
	}

	now := time.Now()
	for _, req := range confirmations {
		_, span := tgotel.StartConfirmationSpan(ctx, req.CorrelationID, req.CallID)
		s.mu.Lock()
		s.pendingSince[req.CorrelationID] = pendingApproval{since: now, span: span}
		s.mu.Unlock()

		if err := s.channel.PublishRequest(req); err != nil {
			slog.Error("publish confirmation request", "correlation_id", req.CorrelationID, "error", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.ConfirmationsRequested.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", req.Tool),
			))
		}
		slog.Info("confirmation requested",
			"call_id", req.CallID,
			"correlation_id", req.CorrelationID,
			"tool", req.Tool,
			"kind", string(req.Details.Kind),
		)
	}

	s.signal()
	return changed, nil
}

// Cancel cancels a non-terminal call for a reason unrelated to a
// confirmation decision (user abort, timeout). If the call was awaiting
// approval its correlation id is invalidated so a late response is
// rejected as stale.
func (s *Scheduler) Cancel(ctx context.Context, callID, reason string) error {
	c, ok := s.state.Call(callID)
	if !ok {
		return &call.UnknownCallIDError{CallID: callID}
	}

	if c.Status == call.StatusAwaitingApproval {
		s.channel.CancelRequest(c.CorrelationID)
		s.mu.Lock()
		if p, ok := s.pendingSince[c.CorrelationID]; ok {
			p.span.SetAttributes(attribute.String("confirmation.outcome", "abandoned"))
			p.span.End()
			delete(s.pendingSince, c.CorrelationID)
		}
		s.mu.Unlock()
	}

	if err := s.state.UpdateStatus(callID, call.StatusCancelled, CancelData{Reason: reason}); err != nil {
		return err
	}

	slog.Info("call cancelled", "call_id", callID, "reason", reason)
	if updated, ok := s.state.Call(callID); ok {
		s.broadcastStatus(ctx, updated)
	}
	s.finalize(ctx, callID)
	return nil
}

// Completed drains the finalized batch.
func (s *Scheduler) Completed() []call.ToolCall {
	return s.state.CompletedBatch()
}

// ActiveCalls returns copies of all active calls in queue order.
func (s *Scheduler) ActiveCalls() []call.ToolCall {
	return s.state.ActiveCalls()
}

// FirstActiveCall returns a copy of the oldest active call, if any.
func (s *Scheduler) FirstActiveCall() (call.ToolCall, bool) {
	return s.state.FirstActiveCall()
}

// Run executes scheduled calls until ctx is cancelled. Parked
// awaiting_approval calls do not block the loop; a decision wakes it and
// resumes only the call it belongs to.
func (s *Scheduler) Run(ctx context.Context) error {
	g := &errgroup.Group{}
	g.SetLimit(s.workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case <-s.wake:
		}

		for _, c := range s.state.ActiveCalls() {
			if c.Status != call.StatusScheduled {
				continue
			}
			if err := s.state.UpdateStatus(c.Request.CallID, call.StatusExecuting, nil); err != nil {
				// Claimed or cancelled in the meantime.
				continue
			}
			claimed := c
			claimed.Status = call.StatusExecuting
			s.broadcastStatus(ctx, claimed)
			g.Go(func() error {
				s.execute(ctx, claimed)
				return nil
			})
		}
	}
}

// applyDecision is the channel's resolver: it maps an accepted
// confirmation response onto the matching call's next transition.
func (s *Scheduler) applyDecision(resp call.ConfirmationResponse) error {
	ctx := context.Background()

	c, ok := s.state.CallByCorrelation(resp.CorrelationID)
	if !ok {
		return &call.StaleResponseError{CorrelationID: resp.CorrelationID}
	}
	callID := c.Request.CallID

	target := call.StatusScheduled
	if resp.Outcome == call.OutcomeCancel {
		target = call.StatusCancelled
	}
	data := DecisionData{CorrelationID: resp.CorrelationID, Outcome: resp.Outcome}
	if err := s.state.UpdateStatus(callID, target, data); err != nil {
		return err
	}

	s.mu.Lock()
	p, tracked := s.pendingSince[resp.CorrelationID]
	delete(s.pendingSince, resp.CorrelationID)
	s.mu.Unlock()

	if tracked {
		p.span.SetAttributes(attribute.String("confirmation.outcome", string(resp.Outcome)))
		p.span.End()
	}

	if s.metrics != nil {
		s.metrics.ConfirmationsResolved.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(resp.Outcome)),
		))
		if tracked {
			s.metrics.ApprovalLatency.Record(ctx, time.Since(p.since).Seconds())
		}
	}
	slog.Info("confirmation resolved",
		"call_id", callID,
		"correlation_id", resp.CorrelationID,
		"outcome", resp.Outcome,
	)

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventConfirmationResolved, ws.ConfirmationResolvedEvent{
			CorrelationID: resp.CorrelationID,
			CallID:        callID,
			Outcome:       string(resp.Outcome),
		})
	}

	if target == call.StatusCancelled {
		if updated, ok := s.state.Call(callID); ok {
			s.broadcastStatus(ctx, updated)
		}
		s.finalize(ctx, callID)
		return nil
	}

	if updated, ok := s.state.Call(callID); ok {
		s.broadcastStatus(ctx, updated)
	}
	if s.metrics != nil {
		s.metrics.CallsScheduled.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", c.Request.Tool),
		))
	}
	s.signal()
	return nil
}

// execute runs one claimed call to its terminal state and finalizes it.
func (s *Scheduler) execute(ctx context.Context, c call.ToolCall) {
	callID := c.Request.CallID
	tool, ok := s.registry.Lookup(c.Request.Tool)
	if !ok {
		// Dequeue resolved the tool; losing it mid-flight means the
		// registry changed under us.
		_ = s.state.UpdateStatus(callID, call.StatusError, ErrorData{Err: fmt.Errorf("tool %q disappeared from registry", c.Request.Tool)})
		s.finalize(ctx, callID)
		return
	}

	execCtx, span := tgotel.StartCallSpan(ctx, callID, tool.Name())
	started := time.Now()
	output, err := tool.Execute(execCtx, c.Request.Params)
	elapsed := time.Since(started)

	if err != nil {
		span.SetAttributes(attribute.String("toolcall.result", "error"))
		_ = s.state.UpdateStatus(callID, call.StatusError, ErrorData{Err: err})
		slog.Warn("tool execution failed", "call_id", callID, "tool", tool.Name(), "error", err)
	} else {
		span.SetAttributes(attribute.String("toolcall.result", "success"))
		_ = s.state.UpdateStatus(callID, call.StatusSuccess, ResultData{Response: &call.Response{
			CallID:  callID,
			Content: output,
			Elapsed: elapsed,
		}})
		slog.Debug("tool executed", "call_id", callID, "tool", tool.Name(), "elapsed", elapsed)
	}
	span.End()

	if s.metrics != nil {
		s.metrics.ExecutionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("tool", tool.Name()),
		))
	}

	if updated, ok := s.state.Call(callID); ok {
		s.broadcastStatus(ctx, updated)
	}
	s.finalize(ctx, callID)
}

// finalize moves a terminal call into the completed batch.
func (s *Scheduler) finalize(ctx context.Context, callID string) {
	if err := s.state.FinalizeCall(callID); err != nil {
		slog.Error("finalize call", "call_id", callID, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.CallsCompleted.Add(ctx, 1)
	}
}

func (s *Scheduler) broadcastStatus(ctx context.Context, c call.ToolCall) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, ws.EventCallStatus, ws.CallStatusEvent{
		CallID:     c.Request.CallID,
		Tool:       c.Request.Tool,
		Status:     string(c.Status),
		Invocation: c.Invocation,
		Error:      c.Error,
	})
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
