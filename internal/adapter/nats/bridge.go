package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/port/confirmbus"
)

// Bridge relays confirmation requests to the confirmations.request
// subject and feeds remote decisions from confirmations.response back
// into the channel.
type Bridge struct {
	queue   *Queue
	channel confirmbus.Channel
}

// NewBridge creates a bridge over the given queue and channel.
func NewBridge(queue *Queue, channel confirmbus.Channel) *Bridge {
	return &Bridge{queue: queue, channel: channel}
}

// ForwardRequest publishes a confirmation request for remote operators.
func (b *Bridge) ForwardRequest(ctx context.Context, req call.ConfirmationRequest) error {
	payload := confirmbus.RequestPayload{
		CorrelationID: req.CorrelationID,
		CallID:        req.CallID,
		Tool:          req.Tool,
		Details:       req.Details,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal confirmation request: %w", err)
	}
	return b.queue.Publish(ctx, confirmbus.SubjectConfirmationRequest, data)
}

// remoteResponse is the accepted wire shape. The Confirmed field only
// exists to detect clients still sending the retired boolean form.
type remoteResponse struct {
	CorrelationID string `json:"correlation_id"`
	Outcome       string `json:"outcome"`
	Confirmed     *bool  `json:"confirmed"`
}

// Start subscribes to confirmations.response and submits each remote
// decision to the channel. Malformed or rejected decisions are logged
// and acked; redelivery cannot make them valid.
func (b *Bridge) Start(ctx context.Context) (func(), error) {
	return b.queue.Subscribe(ctx, confirmbus.SubjectConfirmationResponse, func(subject string, data []byte) error {
		var resp remoteResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			slog.Error("malformed confirmation response", "subject", subject, "error", err)
			return nil
		}
		if resp.Confirmed != nil {
			slog.Error("rejected confirmation response using retired boolean form",
				"correlation_id", resp.CorrelationID,
			)
			return nil
		}

		outcome, err := call.ParseOutcome(resp.Outcome)
		if err != nil {
			slog.Error("rejected confirmation response",
				"correlation_id", resp.CorrelationID,
				"error", err,
			)
			return nil
		}

		if err := b.channel.SubmitResponse(call.ConfirmationResponse{
			CorrelationID: resp.CorrelationID,
			Outcome:       outcome,
		}); err != nil {
			slog.Warn("remote decision not applied",
				"correlation_id", resp.CorrelationID,
				"outcome", outcome,
				"error", err,
			)
		}
		return nil
	})
}
