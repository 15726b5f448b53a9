package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// stubTool is a scriptable call.Tool for state machine tests.
type stubTool struct {
	name        string
	validateErr error
	details     *call.ConfirmationDetails
	output      string
	execErr     error
	execute     func(ctx context.Context, params map[string]any) (string, error)
}

func (t *stubTool) Name() string { return t.name }

func (t *stubTool) Validate(map[string]any) error { return t.validateErr }

func (t *stubTool) Describe(map[string]any) string { return t.name + " invocation" }

func (t *stubTool) Confirmation(map[string]any) *call.ConfirmationDetails {
	if t.details == nil {
		return nil
	}
	d := t.details.Clone()
	return &d
}

func (t *stubTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if t.execute != nil {
		return t.execute(ctx, params)
	}
	return t.output, t.execErr
}

// stubRegistry is a fixed name -> tool map.
type stubRegistry map[string]call.Tool

func (r stubRegistry) Lookup(name string) (call.Tool, bool) {
	t, ok := r[name]
	return t, ok
}

func execDetails(command string) *call.ConfirmationDetails {
	return &call.ConfirmationDetails{
		Kind:  call.ConfirmExec,
		Title: "Run shell command: " + command,
		Exec:  &call.ExecConfirmation{Command: command, RootCommand: "echo"},
	}
}

func newTestManager(tools ...call.Tool) *StateManager {
	reg := stubRegistry{}
	for _, t := range tools {
		reg[t.Name()] = t
	}
	return NewStateManager(reg)
}

func request(id, tool string) call.ToolCallRequest {
	return call.ToolCallRequest{CallID: id, Tool: tool, Params: map[string]any{"k": "v"}}
}

func TestEnqueueCreatesValidatingCalls(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo"), request("c2", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	active := m.ActiveCalls()
	if len(active) != 2 {
		t.Fatalf("got %d active calls, want 2", len(active))
	}
	for i, c := range active {
		if c.Status != call.StatusValidating {
			t.Errorf("call %d status = %s, want validating", i, c.Status)
		}
	}
	if active[0].Request.CallID != "c1" || active[1].Request.CallID != "c2" {
		t.Errorf("order = [%s %s], want [c1 c2]", active[0].Request.CallID, active[1].Request.CallID)
	}
}

func TestEnqueueRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})

	var dup *call.DuplicateCallIDError

	// Duplicate within the batch: nothing is created.
	err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo"), request("c1", "echo")})
	if !errors.As(err, &dup) {
		t.Fatalf("intra-batch duplicate: got %v, want DuplicateCallIDError", err)
	}
	if got := len(m.ActiveCalls()); got != 0 {
		t.Fatalf("batch was partially applied: %d active calls", got)
	}

	// Duplicate against an active call.
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	err = m.Enqueue([]call.ToolCallRequest{request("c2", "echo"), request("c1", "echo")})
	if !errors.As(err, &dup) {
		t.Fatalf("active duplicate: got %v, want DuplicateCallIDError", err)
	}
	if got := len(m.ActiveCalls()); got != 1 {
		t.Fatalf("batch was partially applied: %d active calls, want 1", got)
	}
}

func TestEnqueueRejectsDuplicateAgainstUndrainedCompleted(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	mustComplete(t, m, "c1")

	var dup *call.DuplicateCallIDError
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); !errors.As(err, &dup) {
		t.Fatalf("got %v, want DuplicateCallIDError", err)
	}

	// Draining the batch frees the id.
	if got := len(m.CompletedBatch()); got != 1 {
		t.Fatalf("completed batch = %d, want 1", got)
	}
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue after drain: %v", err)
	}
}

// mustComplete drives one call through execution to success and
// finalizes it.
func mustComplete(t *testing.T, m *StateManager, id string) {
	t.Helper()
	if err := m.Enqueue([]call.ToolCallRequest{request(id, "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	changed, _ := m.Dequeue()
	if len(changed) != 1 || changed[0].Status != call.StatusScheduled {
		t.Fatalf("Dequeue changed = %+v, want one scheduled call", changed)
	}
	if err := m.UpdateStatus(id, call.StatusExecuting, nil); err != nil {
		t.Fatalf("to executing: %v", err)
	}
	if err := m.UpdateStatus(id, call.StatusSuccess, ResultData{Response: &call.Response{CallID: id, Content: "ok"}}); err != nil {
		t.Fatalf("to success: %v", err)
	}
	if err := m.FinalizeCall(id); err != nil {
		t.Fatalf("FinalizeCall: %v", err)
	}
}

func TestDequeueUnknownToolBecomesError(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "nope")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	changed, requests := m.Dequeue()
	if len(requests) != 0 {
		t.Fatalf("unexpected confirmation requests: %+v", requests)
	}
	if len(changed) != 1 {
		t.Fatalf("changed = %d, want 1", len(changed))
	}
	if changed[0].Status != call.StatusError {
		t.Errorf("status = %s, want error", changed[0].Status)
	}
	if changed[0].Error == "" {
		t.Error("error message is empty")
	}
}

func TestDequeueValidationFailureBecomesError(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo", validateErr: errors.New("bad params")})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	changed, _ := m.Dequeue()
	if len(changed) != 1 || changed[0].Status != call.StatusError {
		t.Fatalf("changed = %+v, want one error call", changed)
	}
	if changed[0].Error != "bad params" {
		t.Errorf("error = %q, want %q", changed[0].Error, "bad params")
	}
}

func TestDequeueParksConfirmingToolWithCorrelationID(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("echo hi")})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "shell")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	changed, requests := m.Dequeue()
	if len(changed) != 1 || len(requests) != 1 {
		t.Fatalf("changed = %d, requests = %d, want 1 and 1", len(changed), len(requests))
	}

	c := changed[0]
	if c.Status != call.StatusAwaitingApproval {
		t.Fatalf("status = %s, want awaiting_approval", c.Status)
	}
	if c.CorrelationID == "" {
		t.Fatal("correlation id not allocated")
	}
	if c.ConfirmationDetails == nil || c.ConfirmationDetails.Kind != call.ConfirmExec {
		t.Fatalf("confirmation details = %+v", c.ConfirmationDetails)
	}

	req := requests[0]
	if req.CorrelationID != c.CorrelationID {
		t.Errorf("request correlation id %q != call correlation id %q", req.CorrelationID, c.CorrelationID)
	}
	if req.CallID != "c1" || req.Tool != "shell" {
		t.Errorf("request = %+v", req)
	}
}

func TestDequeueAllocatesDistinctCorrelationIDs(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "shell"), request("c2", "shell")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	_, requests := m.Dequeue()
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if requests[0].CorrelationID == requests[1].CorrelationID {
		t.Errorf("correlation ids collide: %q", requests[0].CorrelationID)
	}
}

func TestAwaitingApprovalRequiresBothFields(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var invalid *call.InvalidTransitionDataError
	cases := []struct {
		name string
		data any
	}{
		{"nil payload", nil},
		{"missing correlation id", ApprovalData{Details: execDetails("x")}},
		{"missing details", ApprovalData{CorrelationID: "corr-1"}},
		{"bare details without wrapper", execDetails("x")},
	}
	for _, tc := range cases {
		err := m.UpdateStatus("c1", call.StatusAwaitingApproval, tc.data)
		if !errors.As(err, &invalid) {
			t.Errorf("%s: got %v, want InvalidTransitionDataError", tc.name, err)
		}
	}

	// The call must still be in validating after every rejection.
	c, ok := m.Call("c1")
	if !ok || c.Status != call.StatusValidating {
		t.Fatalf("call status = %v, want validating", c.Status)
	}

	if err := m.UpdateStatus("c1", call.StatusAwaitingApproval, ApprovalData{
		CorrelationID: "corr-1",
		Details:       execDetails("x"),
	}); err != nil {
		t.Fatalf("complete ApprovalData rejected: %v", err)
	}
}

func TestAwaitingApprovalRejectsCorrelationIDInUse(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo"), request("c2", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	data := ApprovalData{CorrelationID: "corr-1", Details: execDetails("x")}
	if err := m.UpdateStatus("c1", call.StatusAwaitingApproval, data); err != nil {
		t.Fatalf("first park: %v", err)
	}

	var invalid *call.InvalidTransitionDataError
	if err := m.UpdateStatus("c2", call.StatusAwaitingApproval, data); !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionDataError for reused correlation id", err)
	}
}

func TestScheduledDecisionClearsCorrelationID(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	corr := park(t, m, "c1")

	if err := m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: corr, Outcome: call.OutcomeProceedOnce}); err != nil {
		t.Fatalf("to scheduled: %v", err)
	}

	c, _ := m.Call("c1")
	if c.Status != call.StatusScheduled {
		t.Errorf("status = %s, want scheduled", c.Status)
	}
	if c.CorrelationID != "" {
		t.Errorf("correlation id survived the decision: %q", c.CorrelationID)
	}
	if c.Outcome != call.OutcomeProceedOnce {
		t.Errorf("outcome = %s, want proceed_once", c.Outcome)
	}
}

// park enqueues one call for the named shell tool and parks it in
// awaiting_approval, returning its correlation id.
func park(t *testing.T, m *StateManager, id string) string {
	t.Helper()
	if err := m.Enqueue([]call.ToolCallRequest{request(id, "shell")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	changed, _ := m.Dequeue()
	for _, c := range changed {
		if c.Request.CallID == id && c.Status == call.StatusAwaitingApproval {
			return c.CorrelationID
		}
	}
	t.Fatalf("call %q was not parked: %+v", id, changed)
	return ""
}

func TestScheduledDecisionRejectsCancelOutcome(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	corr := park(t, m, "c1")

	var invalid *call.InvalidTransitionDataError
	err := m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: corr, Outcome: call.OutcomeCancel})
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionDataError", err)
	}

	err = m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: corr, Outcome: call.Outcome("yes")})
	if !errors.As(err, &invalid) {
		t.Fatalf("unknown outcome: got %v, want InvalidTransitionDataError", err)
	}
}

func TestScheduledDecisionRejectsMismatchedCorrelationID(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	park(t, m, "c1")

	var stale *call.StaleResponseError
	err := m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: "someone-elses", Outcome: call.OutcomeProceedOnce})
	if !errors.As(err, &stale) {
		t.Fatalf("got %v, want StaleResponseError", err)
	}

	c, _ := m.Call("c1")
	if c.Status != call.StatusAwaitingApproval {
		t.Errorf("status = %s, want awaiting_approval untouched", c.Status)
	}
}

func TestProceedAlwaysSkipsFutureConfirmations(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	corr := park(t, m, "c1")

	if err := m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: corr, Outcome: call.OutcomeProceedAlways}); err != nil {
		t.Fatalf("to scheduled: %v", err)
	}

	// The next call for the same tool schedules without a confirmation.
	if err := m.Enqueue([]call.ToolCallRequest{request("c2", "shell")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	changed, requests := m.Dequeue()
	if len(requests) != 0 {
		t.Fatalf("unexpected confirmation requests: %+v", requests)
	}
	if len(changed) != 1 || changed[0].Status != call.StatusScheduled {
		t.Fatalf("changed = %+v, want c2 scheduled directly", changed)
	}
}

func TestExecutingSetsStartTime(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	m.Dequeue()

	if err := m.UpdateStatus("c1", call.StatusExecuting, nil); err != nil {
		t.Fatalf("to executing: %v", err)
	}
	c, _ := m.Call("c1")
	if c.StartTime == nil {
		t.Fatal("start time not set")
	}
}

func TestSuccessRequiresResponse(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	m.Dequeue()
	if err := m.UpdateStatus("c1", call.StatusExecuting, nil); err != nil {
		t.Fatalf("to executing: %v", err)
	}

	var invalid *call.InvalidTransitionDataError
	if err := m.UpdateStatus("c1", call.StatusSuccess, ResultData{}); !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionDataError", err)
	}
	if err := m.UpdateStatus("c1", call.StatusSuccess, ResultData{Response: &call.Response{CallID: "c1", Content: "done"}}); err != nil {
		t.Fatalf("to success: %v", err)
	}
	c, _ := m.Call("c1")
	if c.Response == nil || c.Response.Content != "done" {
		t.Fatalf("response = %+v", c.Response)
	}
}

func TestInvalidTransitionsAreRejected(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var invalid *call.InvalidTransitionError
	cases := []struct {
		target call.Status
		data   any
	}{
		{call.StatusExecuting, nil}, // validating -> executing skips scheduled
		{call.StatusSuccess, ResultData{Response: &call.Response{CallID: "c1"}}},
		{call.StatusScheduled, DecisionData{CorrelationID: "x", Outcome: call.OutcomeProceedOnce}},
	}
	for _, tc := range cases {
		if err := m.UpdateStatus("c1", tc.target, tc.data); !errors.As(err, &invalid) {
			t.Errorf("validating -> %s: got %v, want InvalidTransitionError", tc.target, err)
		}
	}

	var unknown *call.UnknownCallIDError
	if err := m.UpdateStatus("ghost", call.StatusExecuting, nil); !errors.As(err, &unknown) {
		t.Errorf("unknown call id: got %v, want UnknownCallIDError", err)
	}
}

func TestCancelDecisionPreservesConfirmationDetails(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("rm -rf /tmp/x")})
	corr := park(t, m, "c1")

	if err := m.UpdateStatus("c1", call.StatusCancelled, DecisionData{CorrelationID: corr, Outcome: call.OutcomeCancel}); err != nil {
		t.Fatalf("cancel decision: %v", err)
	}
	if err := m.FinalizeCall("c1"); err != nil {
		t.Fatalf("FinalizeCall: %v", err)
	}

	batch := m.CompletedBatch()
	if len(batch) != 1 {
		t.Fatalf("batch = %d, want 1", len(batch))
	}
	c := batch[0]
	if c.Status != call.StatusCancelled || c.Outcome != call.OutcomeCancel {
		t.Errorf("status = %s, outcome = %s", c.Status, c.Outcome)
	}
	if c.CorrelationID != "" {
		t.Errorf("correlation id survived into the completed record: %q", c.CorrelationID)
	}
	if c.ConfirmationDetails == nil || c.ConfirmationDetails.Exec == nil || c.ConfirmationDetails.Exec.Command != "rm -rf /tmp/x" {
		t.Errorf("confirmation details were lost: %+v", c.ConfirmationDetails)
	}
	if c.Response == nil || c.Response.Content == "" {
		t.Errorf("cancel response missing: %+v", c.Response)
	}
}

func TestCancelDecisionChecksCorrelationID(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	park(t, m, "c1")

	var stale *call.StaleResponseError
	err := m.UpdateStatus("c1", call.StatusCancelled, DecisionData{CorrelationID: "wrong", Outcome: call.OutcomeCancel})
	if !errors.As(err, &stale) {
		t.Fatalf("got %v, want StaleResponseError", err)
	}
}

func TestExternalCancelFromAnyNonTerminalState(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"}, &stubTool{name: "shell", details: execDetails("x")})

	// validating
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := m.UpdateStatus("c1", call.StatusCancelled, CancelData{Reason: "user abort"}); err != nil {
		t.Fatalf("cancel validating: %v", err)
	}
	c, _ := m.Call("c1")
	if c.Response == nil || c.Response.Content != "cancelled: user abort" {
		t.Fatalf("response = %+v", c.Response)
	}

	// awaiting_approval
	park(t, m, "c2")
	if err := m.UpdateStatus("c2", call.StatusCancelled, CancelData{Reason: "timeout"}); err != nil {
		t.Fatalf("cancel awaiting: %v", err)
	}

	// terminal calls cannot be cancelled again
	var invalid *call.InvalidTransitionError
	if err := m.UpdateStatus("c2", call.StatusCancelled, CancelData{}); !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
}

func TestFinalizeCall(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Non-terminal calls cannot be finalized.
	if err := m.FinalizeCall("c1"); err == nil {
		t.Fatal("finalized a validating call")
	}

	var unknown *call.UnknownCallIDError
	if err := m.FinalizeCall("ghost"); !errors.As(err, &unknown) {
		t.Fatalf("got %v, want UnknownCallIDError", err)
	}

	m.Dequeue()
	if err := m.UpdateStatus("c1", call.StatusExecuting, nil); err != nil {
		t.Fatalf("to executing: %v", err)
	}
	if err := m.UpdateStatus("c1", call.StatusSuccess, ResultData{Response: &call.Response{CallID: "c1"}}); err != nil {
		t.Fatalf("to success: %v", err)
	}
	if err := m.FinalizeCall("c1"); err != nil {
		t.Fatalf("FinalizeCall: %v", err)
	}

	// Finalizing again is a no-op.
	if err := m.FinalizeCall("c1"); err != nil {
		t.Fatalf("repeat FinalizeCall: %v", err)
	}
	if got := len(m.CompletedBatch()); got != 1 {
		t.Fatalf("completed batch = %d, want exactly 1", got)
	}
}

func TestCompletedBatchDrains(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	mustComplete(t, m, "c1")
	mustComplete(t, m, "c2")

	first := m.CompletedBatch()
	if len(first) != 2 {
		t.Fatalf("first drain = %d, want 2", len(first))
	}
	if first[0].Request.CallID != "c1" || first[1].Request.CallID != "c2" {
		t.Errorf("order = [%s %s], want [c1 c2]", first[0].Request.CallID, first[1].Request.CallID)
	}
	if second := m.CompletedBatch(); len(second) != 0 {
		t.Fatalf("second drain = %d, want 0", len(second))
	}
}

func TestFirstActiveCall(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	if _, ok := m.FirstActiveCall(); ok {
		t.Fatal("empty manager reported an active call")
	}

	if err := m.Enqueue([]call.ToolCallRequest{request("c1", "echo"), request("c2", "echo")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	c, ok := m.FirstActiveCall()
	if !ok || c.Request.CallID != "c1" {
		t.Fatalf("first active = %+v, want c1", c)
	}

	mustCancelAndFinalize(t, m, "c1")
	c, ok = m.FirstActiveCall()
	if !ok || c.Request.CallID != "c2" {
		t.Fatalf("first active after finalize = %+v, want c2", c)
	}
}

func mustCancelAndFinalize(t *testing.T, m *StateManager, id string) {
	t.Helper()
	if err := m.UpdateStatus(id, call.StatusCancelled, CancelData{Reason: "test"}); err != nil {
		t.Fatalf("cancel %s: %v", id, err)
	}
	if err := m.FinalizeCall(id); err != nil {
		t.Fatalf("finalize %s: %v", id, err)
	}
}

func TestAccessorsReturnIsolatedCopies(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	park(t, m, "c1")

	c, _ := m.Call("c1")
	c.Status = call.StatusSuccess
	c.ConfirmationDetails.Exec.Command = "tampered"
	c.Request.Params["k"] = "tampered"

	again, _ := m.Call("c1")
	if again.Status != call.StatusAwaitingApproval {
		t.Errorf("status mutated through copy: %s", again.Status)
	}
	if again.ConfirmationDetails.Exec.Command != "x" {
		t.Errorf("details mutated through copy: %q", again.ConfirmationDetails.Exec.Command)
	}
	if again.Request.Params["k"] != "v" {
		t.Errorf("params mutated through copy: %v", again.Request.Params["k"])
	}
}

func TestCallByCorrelation(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "shell", details: execDetails("x")})
	corr := park(t, m, "c1")

	c, ok := m.CallByCorrelation(corr)
	if !ok || c.Request.CallID != "c1" {
		t.Fatalf("lookup by correlation = %+v, %v", c, ok)
	}
	if _, ok := m.CallByCorrelation("nope"); ok {
		t.Fatal("found a call for an unissued correlation id")
	}

	// Once decided, the correlation id no longer resolves.
	if err := m.UpdateStatus("c1", call.StatusScheduled, DecisionData{CorrelationID: corr, Outcome: call.OutcomeProceedOnce}); err != nil {
		t.Fatalf("to scheduled: %v", err)
	}
	if _, ok := m.CallByCorrelation(corr); ok {
		t.Fatal("correlation id still resolves after the decision")
	}
}

func TestConcurrentEnqueueUniqueIDs(t *testing.T) {
	t.Parallel()

	m := newTestManager(&stubTool{name: "echo"})
	const n = 32
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		go func() {
			done <- m.Enqueue([]call.ToolCallRequest{request(id, "echo")})
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Enqueue: %v", err)
		}
	}
	if got := len(m.ActiveCalls()); got != n {
		t.Fatalf("active = %d, want %d", got, n)
	}
}
