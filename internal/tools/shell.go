package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// Shell runs a shell command. Every invocation requires confirmation.
type Shell struct{}

// Name implements call.Tool.
func (*Shell) Name() string { return "shell" }

// Validate implements call.Tool.
func (*Shell) Validate(params map[string]any) error {
	_, err := stringParam(params, "command")
	return err
}

// Describe implements call.Tool.
func (*Shell) Describe(params map[string]any) string {
	command, err := stringParam(params, "command")
	if err != nil {
		return "shell"
	}
	return command
}

// Confirmation implements call.Tool.
func (*Shell) Confirmation(params map[string]any) *call.ConfirmationDetails {
	command, err := stringParam(params, "command")
	if err != nil {
		return nil
	}
	return &call.ConfirmationDetails{
		Kind:  call.ConfirmExec,
		Title: fmt.Sprintf("Run shell command: %s", command),
		Exec: &call.ExecConfirmation{
			Command:     command,
			RootCommand: rootCommand(command),
		},
	}
}

// Execute implements call.Tool.
func (*Shell) Execute(ctx context.Context, params map[string]any) (string, error) {
	command, err := stringParam(params, "command")
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("shell %q: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// rootCommand returns the first token of a command line, for policy and
// display purposes.
func rootCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
