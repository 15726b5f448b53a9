// Package bus provides the in-memory implementation of the confirmation
// channel port. It keeps the pending-correlation registry and guarantees
// at-most-one accepted response per correlation id.
package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/port/confirmbus"
)

// Resolver applies an accepted decision to the state manager. The bus calls
// it exactly once per correlation id, outside the bus lock.
type Resolver func(resp call.ConfirmationResponse) error

// subscription identifies one active decision source.
type subscription struct {
	handler confirmbus.Handler
}

// Bus implements confirmbus.Channel in memory.
type Bus struct {
	mu       sync.Mutex
	resolver Resolver
	sub      *subscription
	pending map[string]call.ConfirmationRequest
	order   []string
	// resolved keeps every decided correlation id for the process
	// lifetime, to tell a duplicate response from a stale one.
	resolved map[string]struct{}
}

var _ confirmbus.Channel = (*Bus)(nil)

// New creates a Bus that applies accepted decisions through resolver.
func New(resolver Resolver) *Bus {
	return &Bus{
		resolver: resolver,
		pending:  make(map[string]call.ConfirmationRequest),
		resolved: make(map[string]struct{}),
	}
}

// PublishRequest enqueues req for the subscribed decision source. Requests
// published before any subscriber exists are delivered when one subscribes.
func (b *Bus) PublishRequest(req call.ConfirmationRequest) error {
	b.mu.Lock()
	if _, exists := b.pending[req.CorrelationID]; exists {
		b.mu.Unlock()
		return fmt.Errorf("confirmation request already outstanding for correlation id %q", req.CorrelationID)
	}
	b.pending[req.CorrelationID] = req
	b.order = append(b.order, req.CorrelationID)
	sub := b.sub
	b.mu.Unlock()

	slog.Debug("confirmation request published",
		"correlation_id", req.CorrelationID,
		"call_id", req.CallID,
		"tool", req.Tool,
	)

	if sub != nil {
		sub.handler(req)
	}
	return nil
}

// Subscribe registers the sole active decision source and replays any
// backlog of undelivered requests to it.
func (b *Bus) Subscribe(h confirmbus.Handler) (func(), error) {
	b.mu.Lock()
	if b.sub != nil {
		b.mu.Unlock()
		return nil, confirmbus.ErrSubscriberExists
	}
	sub := &subscription{handler: h}
	b.sub = sub
	backlog := b.snapshotLocked()
	b.mu.Unlock()

	for _, req := range backlog {
		h(req)
	}

	cancel := func() {
		b.mu.Lock()
		if b.sub == sub {
			b.sub = nil
		}
		b.mu.Unlock()
	}
	return cancel, nil
}

// SubmitResponse delivers a decision for a pending correlation id and
// applies it through the resolver.
func (b *Bus) SubmitResponse(resp call.ConfirmationResponse) error {
	b.mu.Lock()
	if _, done := b.resolved[resp.CorrelationID]; done {
		b.mu.Unlock()
		return &call.DuplicateResponseError{CorrelationID: resp.CorrelationID}
	}
	if _, ok := b.pending[resp.CorrelationID]; !ok {
		b.mu.Unlock()
		return &call.StaleResponseError{CorrelationID: resp.CorrelationID}
	}
	b.removeLocked(resp.CorrelationID)
	b.resolved[resp.CorrelationID] = struct{}{}
	resolver := b.resolver
	b.mu.Unlock()

	slog.Debug("confirmation response accepted",
		"correlation_id", resp.CorrelationID,
		"outcome", resp.Outcome,
	)
	return resolver(resp)
}

// CancelRequest invalidates a pending correlation id. The id is not marked
// resolved, so a response arriving afterwards fails as stale.
func (b *Bus) CancelRequest(correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(correlationID)
}

// Pending returns copies of the requests still awaiting a decision, in
// publish order.
func (b *Bus) Pending() []call.ConfirmationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Bus) snapshotLocked() []call.ConfirmationRequest {
	out := make([]call.ConfirmationRequest, 0, len(b.order))
	for _, id := range b.order {
		if req, ok := b.pending[id]; ok {
			out = append(out, req)
		}
	}
	return out
}

func (b *Bus) removeLocked(correlationID string) {
	if _, ok := b.pending[correlationID]; !ok {
		return
	}
	delete(b.pending, correlationID)
	for i, id := range b.order {
		if id == correlationID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
