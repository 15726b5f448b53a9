// Package scheduler owns the tool-call lifecycle: the state manager that
// tracks every in-flight call through a strict state machine, and the
// scheduling loop that drives calls from validation through execution,
// pausing for asynchronous confirmation where a tool requires approval.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// Transition payload shapes. UpdateStatus discriminates these once at
// entry; inside the state machine every payload is statically known.
type (
	// ApprovalData accompanies a transition into awaiting_approval.
	// Both fields are mandatory.
	ApprovalData struct {
		CorrelationID string
		Details       *call.ConfirmationDetails
	}

	// DecisionData accompanies a transition out of awaiting_approval.
	DecisionData struct {
		CorrelationID string
		Outcome       call.Outcome
	}

	// ResultData accompanies the executing -> success transition.
	ResultData struct {
		Response *call.Response
	}

	// ErrorData accompanies a transition into the terminal error state.
	ErrorData struct {
		Err error
	}

	// CancelData accompanies an external cancellation (user abort,
	// timeout) of any non-terminal call.
	CancelData struct {
		Reason string
	}
)

// managedCall pairs the lifecycle record with its resolved tool.
type managedCall struct {
	call call.ToolCall
	tool call.Tool
}

// StateManager owns the authoritative lifecycle state of every in-flight
// tool call. All mutations go through Enqueue, Dequeue, UpdateStatus and
// FinalizeCall, serialized by a single mutex; accessors return copies.
type StateManager struct {
	mu        sync.Mutex
	registry  call.Registry
	active    map[string]*managedCall
	order     []string
	completed []call.ToolCall
	// seen keeps every enqueued id for the manager's lifetime so
	// FinalizeCall stays idempotent after the batch is drained.
	seen map[string]struct{}
	always    map[string]struct{}
}

// NewStateManager creates an empty state manager resolving tools through
// registry.
func NewStateManager(registry call.Registry) *StateManager {
	return &StateManager{
		registry: registry,
		active:   make(map[string]*managedCall),
		seen:     make(map[string]struct{}),
		always:   make(map[string]struct{}),
	}
}

// Enqueue creates one validating call per request, preserving request
// order. It fails without creating anything if any call id collides with
// an active or not-yet-drained completed call.
func (m *StateManager) Enqueue(requests []call.ToolCallRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	taken := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := taken[req.CallID]; dup {
			return &call.DuplicateCallIDError{CallID: req.CallID}
		}
		if _, dup := m.active[req.CallID]; dup {
			return &call.DuplicateCallIDError{CallID: req.CallID}
		}
		for i := range m.completed {
			if m.completed[i].Request.CallID == req.CallID {
				return &call.DuplicateCallIDError{CallID: req.CallID}
			}
		}
		taken[req.CallID] = struct{}{}
	}

	for _, req := range requests {
		m.active[req.CallID] = &managedCall{
			call: call.ToolCall{
				Request: req.Clone(),
				Status:  call.StatusValidating,
			},
		}
		m.order = append(m.order, req.CallID)
		m.seen[req.CallID] = struct{}{}
	}
	return nil
}

// Dequeue advances every validating call: validation failure makes it a
// terminal error, a tool requiring confirmation parks it in
// awaiting_approval with a freshly allocated correlation id, anything
// else becomes scheduled. It returns copies of the calls that changed
// state, in queue order, together with the confirmation requests the
// caller must publish on the confirmation channel.
func (m *StateManager) Dequeue() ([]call.ToolCall, []call.ConfirmationRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed []call.ToolCall
	var requests []call.ConfirmationRequest

	for _, id := range m.order {
		c, ok := m.active[id]
		if !ok || c.call.Status != call.StatusValidating {
			continue
		}

		tool, found := m.registry.Lookup(c.call.Request.Tool)
		if !found {
			c.call.Status = call.StatusError
			c.call.Error = fmt.Sprintf("unknown tool %q", c.call.Request.Tool)
			changed = append(changed, c.call.Clone())
			continue
		}
		c.tool = tool
		c.call.Invocation = tool.Describe(c.call.Request.Params)

		if err := tool.Validate(c.call.Request.Params); err != nil {
			c.call.Status = call.StatusError
			c.call.Error = err.Error()
			changed = append(changed, c.call.Clone())
			continue
		}

		details := tool.Confirmation(c.call.Request.Params)
		if details != nil {
			if _, allowed := m.always[tool.Name()]; allowed {
				details = nil
			}
		}

		if details == nil {
			c.call.Status = call.StatusScheduled
			changed = append(changed, c.call.Clone())
			continue
		}

		correlationID := uuid.NewString()
		c.call.Status = call.StatusAwaitingApproval
		c.call.CorrelationID = correlationID
		detailsCopy := details.Clone()
		c.call.ConfirmationDetails = &detailsCopy

		changed = append(changed, c.call.Clone())
		requests = append(requests, call.ConfirmationRequest{
			CorrelationID: correlationID,
			CallID:        c.call.Request.CallID,
			Tool:          tool.Name(),
			Details:       details.Clone(),
		})
	}

	return changed, requests
}

// UpdateStatus is the single mutation entry point for all transitions
// other than the ones Dequeue performs. The required shape of data is a
// function of target; a mismatch fails with InvalidTransitionDataError
// without mutating the call.
func (m *StateManager) UpdateStatus(callID string, target call.Status, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.active[callID]
	if !ok {
		return &call.UnknownCallIDError{CallID: callID}
	}

	switch target {
	case call.StatusAwaitingApproval:
		return m.toAwaitingApproval(c, data)
	case call.StatusScheduled:
		return m.toScheduled(c, data)
	case call.StatusExecuting:
		return m.toExecuting(c)
	case call.StatusSuccess:
		return m.toSuccess(c, data)
	case call.StatusError:
		return m.toError(c, data)
	case call.StatusCancelled:
		return m.toCancelled(c, data)
	default:
		return &call.InvalidTransitionError{CallID: callID, From: c.call.Status, To: target}
	}
}

// toAwaitingApproval parks a validating call for confirmation. Both the
// correlation id and the confirmation details are mandatory; the
// pre-migration shape (bare confirmation details without a correlation
// id) is rejected outright instead of being guessed at.
func (m *StateManager) toAwaitingApproval(c *managedCall, data any) error {
	id := c.call.Request.CallID
	if c.call.Status != call.StatusValidating {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusAwaitingApproval}
	}

	approval, ok := data.(ApprovalData)
	if !ok {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusAwaitingApproval, Want: "ApprovalData{CorrelationID, Details}"}
	}
	if approval.CorrelationID == "" || approval.Details == nil {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusAwaitingApproval, Want: "ApprovalData{CorrelationID, Details}"}
	}
	for _, other := range m.active {
		if other.call.CorrelationID == approval.CorrelationID {
			return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusAwaitingApproval, Want: "unused correlation id"}
		}
	}

	c.call.Status = call.StatusAwaitingApproval
	c.call.CorrelationID = approval.CorrelationID
	details := approval.Details.Clone()
	c.call.ConfirmationDetails = &details
	return nil
}

// toScheduled applies a positive confirmation decision.
func (m *StateManager) toScheduled(c *managedCall, data any) error {
	id := c.call.Request.CallID
	if c.call.Status != call.StatusAwaitingApproval {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusScheduled}
	}

	decision, ok := data.(DecisionData)
	if !ok {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusScheduled, Want: "DecisionData{CorrelationID, Outcome}"}
	}
	if decision.Outcome == call.OutcomeCancel || !decision.Outcome.Valid() {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusScheduled, Want: "outcome of proceed_once, proceed_always or modify_and_proceed"}
	}
	if decision.CorrelationID != c.call.CorrelationID {
		return &call.StaleResponseError{CorrelationID: decision.CorrelationID}
	}

	if decision.Outcome == call.OutcomeProceedAlways && c.tool != nil {
		m.always[c.tool.Name()] = struct{}{}
	}

	c.call.Status = call.StatusScheduled
	c.call.Outcome = decision.Outcome
	c.call.CorrelationID = ""
	return nil
}

func (m *StateManager) toExecuting(c *managedCall) error {
	id := c.call.Request.CallID
	if c.call.Status != call.StatusScheduled {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusExecuting}
	}
	now := time.Now()
	c.call.Status = call.StatusExecuting
	c.call.StartTime = &now
	return nil
}

func (m *StateManager) toSuccess(c *managedCall, data any) error {
	id := c.call.Request.CallID
	if c.call.Status != call.StatusExecuting {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusSuccess}
	}
	result, ok := data.(ResultData)
	if !ok || result.Response == nil {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusSuccess, Want: "ResultData{Response}"}
	}
	resp := *result.Response
	c.call.Status = call.StatusSuccess
	c.call.Response = &resp
	return nil
}

func (m *StateManager) toError(c *managedCall, data any) error {
	id := c.call.Request.CallID
	if c.call.Status != call.StatusValidating && c.call.Status != call.StatusExecuting {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusError}
	}
	errData, ok := data.(ErrorData)
	if !ok || errData.Err == nil {
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusError, Want: "ErrorData{Err}"}
	}
	c.call.Status = call.StatusError
	c.call.Error = errData.Err.Error()
	c.call.CorrelationID = ""
	return nil
}

// toCancelled handles both a cancel decision from the confirmation
// channel (DecisionData with outcome cancel, correlation-checked) and an
// external cancellation of any non-terminal call (CancelData). The
// confirmation details survive into the completed record; only the
// correlation id is cleared.
func (m *StateManager) toCancelled(c *managedCall, data any) error {
	id := c.call.Request.CallID
	if c.call.Status.Terminal() {
		return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusCancelled}
	}

	switch d := data.(type) {
	case DecisionData:
		if c.call.Status != call.StatusAwaitingApproval {
			return &call.InvalidTransitionError{CallID: id, From: c.call.Status, To: call.StatusCancelled}
		}
		if d.Outcome != call.OutcomeCancel {
			return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusCancelled, Want: "outcome of cancel"}
		}
		if d.CorrelationID != c.call.CorrelationID {
			return &call.StaleResponseError{CorrelationID: d.CorrelationID}
		}
		c.call.Outcome = call.OutcomeCancel
		c.call.Response = &call.Response{CallID: id, Content: "cancelled by confirmation decision"}
	case CancelData:
		c.call.Outcome = call.OutcomeCancel
		reason := d.Reason
		if reason == "" {
			reason = "cancelled"
		}
		c.call.Response = &call.Response{CallID: id, Content: "cancelled: " + reason}
	default:
		return &call.InvalidTransitionDataError{CallID: id, Target: call.StatusCancelled, Want: "DecisionData or CancelData"}
	}

	c.call.Status = call.StatusCancelled
	c.call.CorrelationID = ""
	return nil
}

// FinalizeCall moves a terminal call from the active set into the
// completed batch. Finalizing an already-finalized call is a no-op;
// a call id that was never enqueued fails with UnknownCallIDError.
func (m *StateManager) FinalizeCall(callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.active[callID]
	if !ok {
		if _, existed := m.seen[callID]; existed {
			return nil
		}
		return &call.UnknownCallIDError{CallID: callID}
	}
	if !c.call.Status.Terminal() {
		return fmt.Errorf("call %q is %s, not terminal", callID, c.call.Status)
	}

	m.completed = append(m.completed, c.call.Clone())
	delete(m.active, callID)
	for i, id := range m.order {
		if id == callID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// FirstActiveCall returns a copy of the oldest active call, if any.
func (m *StateManager) FirstActiveCall() (call.ToolCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if c, ok := m.active[id]; ok {
			return c.call.Clone(), true
		}
	}
	return call.ToolCall{}, false
}

// ActiveCalls returns copies of all active calls in queue order.
func (m *StateManager) ActiveCalls() []call.ToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]call.ToolCall, 0, len(m.order))
	for _, id := range m.order {
		if c, ok := m.active[id]; ok {
			out = append(out, c.call.Clone())
		}
	}
	return out
}

// CompletedBatch drains the ordered sequence of finalized calls:
// the batch is returned and cleared, so each finalized call is observed
// exactly once.
func (m *StateManager) CompletedBatch() []call.ToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := m.completed
	m.completed = nil
	return batch
}

// Call returns a copy of the active call with the given id.
func (m *StateManager) Call(callID string) (call.ToolCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.active[callID]; ok {
		return c.call.Clone(), true
	}
	return call.ToolCall{}, false
}

// CallByCorrelation returns a copy of the active call currently holding
// the given correlation id.
func (m *StateManager) CallByCorrelation(correlationID string) (call.ToolCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.active {
		if c.call.Status == call.StatusAwaitingApproval && c.call.CorrelationID == correlationID {
			return c.call.Clone(), true
		}
	}
	return call.ToolCall{}, false
}
