package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ToolGate/internal/domain/call"
	"github.com/Strob0t/ToolGate/internal/logger"
)

// SchedulerAPI is the slice of the scheduler the HTTP adapter needs.
type SchedulerAPI interface {
	Schedule(ctx context.Context, requests []call.ToolCallRequest) ([]call.ToolCall, error)
	Cancel(ctx context.Context, callID, reason string) error
	Completed() []call.ToolCall
	ActiveCalls() []call.ToolCall
	FirstActiveCall() (call.ToolCall, bool)
}

// DecisionAPI resolves confirmations parked for user input.
type DecisionAPI interface {
	Resolve(correlationID string, outcome call.Outcome) error
	PendingUser() []call.ConfirmationRequest
}

// Handlers holds the HTTP handlers for the scheduling API.
type Handlers struct {
	Scheduler SchedulerAPI
	Decisions DecisionAPI
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(scheduler SchedulerAPI, decisions DecisionAPI) *Handlers {
	return &Handlers{Scheduler: scheduler, Decisions: decisions}
}

type scheduleRequest struct {
	Calls []call.ToolCallRequest `json:"calls"`
}

type scheduleResponse struct {
	Calls []call.ToolCall `json:"calls"`
}

// ScheduleCalls handles POST /calls.
func (h *Handlers) ScheduleCalls(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[scheduleRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Calls) == 0 {
		writeError(w, http.StatusBadRequest, "calls must not be empty")
		return
	}
	for _, c := range req.Calls {
		if c.CallID == "" || c.Tool == "" {
			writeError(w, http.StatusBadRequest, "every call needs a callId and a tool")
			return
		}
	}

	slog.Info("schedule request",
		"request_id", logger.RequestID(r.Context()),
		"calls", len(req.Calls),
	)

	calls, err := h.Scheduler.Schedule(r.Context(), req.Calls)
	if err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, scheduleResponse{Calls: calls})
}

// ListActiveCalls handles GET /calls.
func (h *Handlers) ListActiveCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scheduleResponse{Calls: h.Scheduler.ActiveCalls()})
}

// FirstActiveCall handles GET /calls/first.
func (h *Handlers) FirstActiveCall(w http.ResponseWriter, r *http.Request) {
	c, ok := h.Scheduler.FirstActiveCall()
	if !ok {
		writeError(w, http.StatusNotFound, "no active calls")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelCall handles POST /calls/{callID}/cancel.
func (h *Handlers) CancelCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	req, err := readJSON[cancelRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "cancelled via API"
	}

	if err := h.Scheduler.Cancel(r.Context(), callID, reason); err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// DrainCompleted handles GET /calls/completed. Reading the batch
// removes it, so each terminal call is reported exactly once.
func (h *Handlers) DrainCompleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scheduleResponse{Calls: h.Scheduler.Completed()})
}

// ListPendingConfirmations handles GET /confirmations.
func (h *Handlers) ListPendingConfirmations(w http.ResponseWriter, r *http.Request) {
	pending := h.Decisions.PendingUser()
	if pending == nil {
		pending = []call.ConfirmationRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": pending})
}

type resolveRequest struct {
	Outcome   string `json:"outcome"`
	Confirmed *bool  `json:"confirmed"`
}

// ResolveConfirmation handles POST /confirmations/{correlationID}.
// The body carries an explicit outcome; the retired boolean "confirmed"
// shape is rejected so callers migrate instead of silently degrading.
func (h *Handlers) ResolveConfirmation(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	req, err := readJSON[resolveRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Confirmed != nil {
		writeError(w, http.StatusBadRequest, "the boolean \"confirmed\" field is no longer accepted; send an explicit outcome")
		return
	}

	outcome, err := call.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Decisions.Resolve(correlationID, outcome); err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
