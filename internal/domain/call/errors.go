package call

import "fmt"

// DuplicateCallIDError reports an enqueue whose call id collides with an
// active or not-yet-finalized call.
type DuplicateCallIDError struct {
	CallID string
}

func (e *DuplicateCallIDError) Error() string {
	return fmt.Sprintf("duplicate call id %q", e.CallID)
}

// UnknownCallIDError reports an operation against a call id the manager
// has never seen.
type UnknownCallIDError struct {
	CallID string
}

func (e *UnknownCallIDError) Error() string {
	return fmt.Sprintf("unknown call id %q", e.CallID)
}

// InvalidTransitionError reports a status change that is not legal from
// the call's current status.
type InvalidTransitionError struct {
	CallID string
	From   Status
	To     Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("call %q: invalid transition %s -> %s", e.CallID, e.From, e.To)
}

// InvalidTransitionDataError reports a transition payload whose shape does
// not match the target status.
type InvalidTransitionDataError struct {
	CallID string
	Target Status
	Want   string
}

func (e *InvalidTransitionDataError) Error() string {
	return fmt.Sprintf("call %q: invalid data for %s transition, want %s", e.CallID, e.Target, e.Want)
}

// StaleResponseError reports a confirmation response whose correlation id
// is not currently pending (late delivery after cancellation, or an id
// that was never issued).
type StaleResponseError struct {
	CorrelationID string
}

func (e *StaleResponseError) Error() string {
	return fmt.Sprintf("stale confirmation response for correlation id %q", e.CorrelationID)
}

// DuplicateResponseError reports a second confirmation response for a
// correlation id that was already resolved.
type DuplicateResponseError struct {
	CorrelationID string
}

func (e *DuplicateResponseError) Error() string {
	return fmt.Sprintf("duplicate confirmation response for correlation id %q", e.CorrelationID)
}
