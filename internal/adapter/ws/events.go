package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// Event type constants for WebSocket messages.
const (
	EventCallStatus           = "call.status"
	EventConfirmationRequest  = "confirmation.request"
	EventConfirmationResolved = "confirmation.resolved"
)

// CallStatusEvent is broadcast whenever a call changes lifecycle state.
type CallStatusEvent struct {
	CallID     string `json:"call_id"`
	Tool       string `json:"tool"`
	Status     string `json:"status"`
	Invocation string `json:"invocation,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConfirmationRequestEvent is broadcast when a call starts awaiting approval.
type ConfirmationRequestEvent struct {
	CorrelationID string                   `json:"correlation_id"`
	CallID        string                   `json:"call_id"`
	Tool          string                   `json:"tool"`
	Details       call.ConfirmationDetails `json:"details"`
}

// ConfirmationResolvedEvent is broadcast once a decision was accepted.
type ConfirmationResolvedEvent struct {
	CorrelationID string `json:"correlation_id"`
	CallID        string `json:"call_id"`
	Outcome       string `json:"outcome"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
