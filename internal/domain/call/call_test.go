package call

import "testing"

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusSuccess, StatusError, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	live := []Status{StatusValidating, StatusScheduled, StatusAwaitingApproval, StatusExecuting}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	for _, want := range []Outcome{OutcomeProceedOnce, OutcomeProceedAlways, OutcomeModifyAndProceed, OutcomeCancel} {
		got, err := ParseOutcome(string(want))
		if err != nil {
			t.Errorf("ParseOutcome(%q): %v", want, err)
		}
		if got != want {
			t.Errorf("ParseOutcome(%q) = %q", want, got)
		}
	}

	// Values from the retired boolean representation must not parse.
	for _, bad := range []string{"", "true", "false", "confirmed", "yes", "approve"} {
		if _, err := ParseOutcome(bad); err == nil {
			t.Errorf("ParseOutcome(%q) succeeded, want error", bad)
		}
	}
}

func TestToolCallCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := ToolCall{
		Request: ToolCallRequest{
			CallID: "c1",
			Tool:   "shell",
			Params: map[string]any{"command": "echo hi"},
		},
		Status:        StatusAwaitingApproval,
		CorrelationID: "corr-1",
		ConfirmationDetails: &ConfirmationDetails{
			Kind:  ConfirmExec,
			Title: "Run shell command",
			Exec:  &ExecConfirmation{Command: "echo hi"},
		},
		Response: &Response{CallID: "c1", Content: "hi"},
	}

	clone := orig.Clone()
	clone.Request.Params["command"] = "tampered"
	clone.ConfirmationDetails.Exec.Command = "tampered"
	clone.Response.Content = "tampered"

	if orig.Request.Params["command"] != "echo hi" {
		t.Error("params shared between clone and original")
	}
	if orig.ConfirmationDetails.Exec.Command != "echo hi" {
		t.Error("confirmation details shared between clone and original")
	}
	if orig.Response.Content != "hi" {
		t.Error("response shared between clone and original")
	}
}

func TestConfirmationDetailsCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := ConfirmationDetails{
		Kind:  ConfirmInfo,
		Title: "Fetch URL",
		Info:  &InfoConfirmation{Prompt: "fetching", URLs: []string{"https://example.com"}},
	}
	clone := orig.Clone()
	clone.Info.URLs[0] = "https://tampered.example"

	if orig.Info.URLs[0] != "https://example.com" {
		t.Error("url slice shared between clone and original")
	}
}
