// Package service wires decision sources to the confirmation channel.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/ToolGate/internal/adapter/ws"
	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/domain/policy"
	"github.com/Strob0t/ToolGate/internal/port/confirmbus"
)

// Broadcaster pushes events to connected clients. Satisfied by ws.Hub.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// DecisionService is the decision source subscribed to the confirmation
// channel. Each request is evaluated against a policy profile: allow and
// deny resolve it immediately, ask parks it for a human decision
// delivered through Resolve (HTTP) and announced over WebSocket.
type DecisionService struct {
	channel confirmbus.Channel
	profile policy.Profile
	hub     Broadcaster

	mu      sync.Mutex
	asked   map[string]call.ConfirmationRequest
	order   []string
	cancel  func()
	forward func(call.ConfirmationRequest)
}

// SetForwarder registers a callback invoked for every request parked
// for a human decision, e.g. to relay it to remote operators. Must be
// called before Start.
func (s *DecisionService) SetForwarder(forward func(call.ConfirmationRequest)) {
	s.forward = forward
}

// NewDecisionService creates a DecisionService routing decisions for the
// given profile. hub may be nil.
func NewDecisionService(channel confirmbus.Channel, profile policy.Profile, hub Broadcaster) *DecisionService {
	return &DecisionService{
		channel: channel,
		profile: profile,
		hub:     hub,
		asked:   make(map[string]call.ConfirmationRequest),
	}
}

// Start subscribes to the confirmation channel. It fails if another
// decision source is already subscribed.
func (s *DecisionService) Start() error {
	cancel, err := s.channel.Subscribe(s.handle)
	if err != nil {
		return fmt.Errorf("subscribe decision service: %w", err)
	}
	s.cancel = cancel
	return nil
}

// Stop unsubscribes from the confirmation channel.
func (s *DecisionService) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// handle routes one confirmation request.
func (s *DecisionService) handle(req call.ConfirmationRequest) {
	result := s.profile.Evaluate(req.Tool, invocationOf(req))

	slog.Debug("policy evaluation",
		"call_id", req.CallID,
		"correlation_id", req.CorrelationID,
		"tool", req.Tool,
		"decision", result.Decision,
		"profile", result.Profile,
		"rule_index", result.RuleIndex,
		"reason", result.Reason,
	)

	switch result.Decision {
	case policy.DecisionAllow:
		s.submit(req, call.OutcomeProceedOnce)
	case policy.DecisionDeny:
		s.submit(req, call.OutcomeCancel)
	default:
		s.mu.Lock()
		s.asked[req.CorrelationID] = req
		s.order = append(s.order, req.CorrelationID)
		s.mu.Unlock()

		slog.Info("confirmation needs user decision",
			"call_id", req.CallID,
			"correlation_id", req.CorrelationID,
			"tool", req.Tool,
		)
		if s.hub != nil {
			s.hub.BroadcastEvent(context.Background(), ws.EventConfirmationRequest, ws.ConfirmationRequestEvent{
				CorrelationID: req.CorrelationID,
				CallID:        req.CallID,
				Tool:          req.Tool,
				Details:       req.Details,
			})
		}
		if s.forward != nil {
			s.forward(req)
		}
	}
}

// Resolve applies a human decision to a parked confirmation request.
// The first resolution wins; later ones fail with the channel's
// duplicate/stale errors.
func (s *DecisionService) Resolve(correlationID string, outcome call.Outcome) error {
	s.mu.Lock()
	s.drop(correlationID)
	s.mu.Unlock()

	// Whether or not the request was parked here, the channel is the
	// authority: it classifies unknown ids as stale and repeats as
	// duplicates.
	return s.channel.SubmitResponse(call.ConfirmationResponse{
		CorrelationID: correlationID,
		Outcome:       outcome,
	})
}

// PendingUser returns copies of the requests awaiting a human decision,
// oldest first.
func (s *DecisionService) PendingUser() []call.ConfirmationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]call.ConfirmationRequest, 0, len(s.order))
	for _, id := range s.order {
		if req, ok := s.asked[id]; ok {
			out = append(out, req)
		}
	}
	return out
}

func (s *DecisionService) submit(req call.ConfirmationRequest, outcome call.Outcome) {
	resp := call.ConfirmationResponse{CorrelationID: req.CorrelationID, Outcome: outcome}
	if err := s.channel.SubmitResponse(resp); err != nil {
		slog.Error("submit policy decision",
			"correlation_id", req.CorrelationID,
			"outcome", outcome,
			"error", err,
		)
	}
}

// drop must be called with s.mu held.
func (s *DecisionService) drop(correlationID string) {
	if _, ok := s.asked[correlationID]; !ok {
		return
	}
	delete(s.asked, correlationID)
	for i, id := range s.order {
		if id == correlationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// invocationOf picks the string a policy pattern should match against.
func invocationOf(req call.ConfirmationRequest) string {
	switch req.Details.Kind {
	case call.ConfirmExec:
		if req.Details.Exec != nil {
			return req.Details.Exec.Command
		}
	case call.ConfirmEdit:
		if req.Details.Edit != nil {
			return req.Details.Edit.FilePath
		}
	case call.ConfirmInfo:
		if req.Details.Info != nil && len(req.Details.Info.URLs) > 0 {
			return req.Details.Info.URLs[0]
		}
	}
	return req.Details.Title
}
