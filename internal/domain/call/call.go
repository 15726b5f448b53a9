// Package call defines the tool-call lifecycle domain model: requests,
// calls, statuses, confirmation messages, and the error taxonomy shared
// by the scheduler and the confirmation channel.
package call

import (
	"context"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a tool call.
type Status string

const (
	StatusValidating       Status = "validating"
	StatusScheduled        Status = "scheduled"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusExecuting        Status = "executing"
	StatusSuccess          Status = "success"
	StatusError            Status = "error"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether no further transition can occur from s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusCancelled
}

// Outcome is the decision result of a confirmation request.
type Outcome string

const (
	OutcomeProceedOnce      Outcome = "proceed_once"
	OutcomeProceedAlways    Outcome = "proceed_always"
	OutcomeModifyAndProceed Outcome = "modify_and_proceed"
	OutcomeCancel           Outcome = "cancel"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeProceedOnce, OutcomeProceedAlways, OutcomeModifyAndProceed, OutcomeCancel:
		return true
	}
	return false
}

// ParseOutcome converts a wire value into an Outcome. There is no
// fallback from the retired boolean "confirmed" representation; an empty
// or unknown value is an error.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", fmt.Errorf("invalid confirmation outcome %q", s)
	}
	return o, nil
}

// ToolCallRequest is an immutable request to invoke a tool. Created by the
// caller submitting work; never mutated afterwards.
type ToolCallRequest struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Clone returns a copy of the request with its own params map.
func (r ToolCallRequest) Clone() ToolCallRequest {
	out := r
	if r.Params != nil {
		params := make(map[string]any, len(r.Params))
		for k, v := range r.Params {
			params[k] = v
		}
		out.Params = params
	}
	return out
}

// Response is the result payload of a finished tool call.
type Response struct {
	CallID  string        `json:"call_id"`
	Content string        `json:"content,omitempty"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// ToolCall is the mutable lifecycle record for one ToolCallRequest.
// It is owned exclusively by the state manager; everything outside sees
// value copies only.
type ToolCall struct {
	Request    ToolCallRequest `json:"request"`
	Status     Status          `json:"status"`
	Invocation string          `json:"invocation,omitempty"`
	StartTime  *time.Time      `json:"start_time,omitempty"`
	Outcome    Outcome         `json:"outcome,omitempty"`

	// Populated only while Status == StatusAwaitingApproval.
	CorrelationID       string               `json:"correlation_id,omitempty"`
	ConfirmationDetails *ConfirmationDetails `json:"confirmation_details,omitempty"`

	// Populated once terminal.
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Clone returns a copy of the call with no shared pointers, safe to hand
// outside the state manager.
func (c ToolCall) Clone() ToolCall {
	out := c
	if c.StartTime != nil {
		t := *c.StartTime
		out.StartTime = &t
	}
	if c.Response != nil {
		r := *c.Response
		out.Response = &r
	}
	if c.ConfirmationDetails != nil {
		d := c.ConfirmationDetails.Clone()
		out.ConfirmationDetails = &d
	}
	if c.Request.Params != nil {
		params := make(map[string]any, len(c.Request.Params))
		for k, v := range c.Request.Params {
			params[k] = v
		}
		out.Request.Params = params
	}
	return out
}

// Tool is the execution collaborator's view of a tool. The scheduler only
// needs validation, an optional confirmation payload, and execution.
type Tool interface {
	// Name returns the tool's registry name.
	Name() string

	// Validate checks the invocation parameters before scheduling.
	Validate(params map[string]any) error

	// Describe renders a short human-readable invocation string.
	Describe(params map[string]any) string

	// Confirmation returns the confirmation payload an approval for this
	// invocation should present, or nil when no approval is required.
	Confirmation(params map[string]any) *ConfirmationDetails

	// Execute runs the tool and returns its output.
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Registry resolves tool names to implementations.
type Registry interface {
	Lookup(name string) (Tool, bool)
}
