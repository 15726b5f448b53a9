// Package confirmbus defines the confirmation channel port: a
// correlation-keyed request/response bus between the scheduler and
// whatever decision source is currently subscribed.
package confirmbus

import (
	"errors"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// ErrSubscriberExists is returned by Subscribe when a decision source is
// already registered. The channel is single-consumer on purpose: two
// concurrent deciders would mean split-brain decisions.
var ErrSubscriberExists = errors.New("confirmation channel already has a subscriber")

// Handler receives confirmation requests on behalf of the decision source.
type Handler func(call.ConfirmationRequest)

// Channel is the port interface for the confirmation request/response bus.
//
// One request may be outstanding per correlation id, and at most one
// response is ever accepted for it. Responses are applied to the state
// manager exactly once via the resolver the channel was constructed with.
type Channel interface {
	// PublishRequest enqueues a confirmation request for delivery to the
	// subscribed decision source.
	PublishRequest(req call.ConfirmationRequest) error

	// Subscribe registers the sole active decision source. The returned
	// function cancels the subscription. Subscribing while another
	// subscription is active returns ErrSubscriberExists.
	Subscribe(h Handler) (cancel func(), err error)

	// SubmitResponse delivers a decision for a pending correlation id.
	// A second response for the same id fails with DuplicateResponseError;
	// an id that is not pending fails with StaleResponseError.
	SubmitResponse(resp call.ConfirmationResponse) error

	// CancelRequest invalidates a pending correlation id so a late
	// response is rejected as stale instead of silently accepted.
	CancelRequest(correlationID string)

	// Pending returns read-only copies of the requests still awaiting a
	// decision, in publish order.
	Pending() []call.ConfirmationRequest
}

// Subject constants for bridging the channel over NATS.
const (
	SubjectConfirmationRequest  = "confirmations.request"  // scheduler -> remote decision source
	SubjectConfirmationResponse = "confirmations.response" // remote decision source -> scheduler
)

// RequestPayload is the wire schema for confirmations.request messages.
type RequestPayload struct {
	CorrelationID string                   `json:"correlation_id"`
	CallID        string                   `json:"call_id"`
	Tool          string                   `json:"tool"`
	Details       call.ConfirmationDetails `json:"details"`
}

// ResponsePayload is the wire schema for confirmations.response messages.
type ResponsePayload struct {
	CorrelationID string `json:"correlation_id"`
	Outcome       string `json:"outcome"`
}
