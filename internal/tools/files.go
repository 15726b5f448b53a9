package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// WriteFile writes content to a file. The confirmation presents the full
// diff against the file's current content.
type WriteFile struct{}

// Name implements call.Tool.
func (*WriteFile) Name() string { return "write_file" }

// Validate implements call.Tool.
func (*WriteFile) Validate(params map[string]any) error {
	if _, err := stringParam(params, "path"); err != nil {
		return err
	}
	if v, ok := params["content"]; !ok {
		return fmt.Errorf("missing required parameter %q", "content")
	} else if _, isString := v.(string); !isString {
		return fmt.Errorf("parameter %q must be a string", "content")
	}
	return nil
}

// Describe implements call.Tool.
func (*WriteFile) Describe(params map[string]any) string {
	path, err := stringParam(params, "path")
	if err != nil {
		return "write_file"
	}
	return "write " + path
}

// Confirmation implements call.Tool.
func (*WriteFile) Confirmation(params map[string]any) *call.ConfirmationDetails {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil
	}
	content, _ := params["content"].(string)

	original := ""
	if data, readErr := os.ReadFile(path); readErr == nil {
		original = string(data)
	}

	return &call.ConfirmationDetails{
		Kind:  call.ConfirmEdit,
		Title: fmt.Sprintf("Write file: %s", path),
		Edit: &call.EditConfirmation{
			FileName:        filepath.Base(path),
			FilePath:        path,
			FileDiff:        lineDiff(original, content),
			OriginalContent: original,
			NewContent:      content,
		},
	}
}

// Execute implements call.Tool.
func (*WriteFile) Execute(_ context.Context, params map[string]any) (string, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return "", err
	}
	content, _ := params["content"].(string)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// ReadFile reads a file. No confirmation required.
type ReadFile struct{}

// Name implements call.Tool.
func (*ReadFile) Name() string { return "read_file" }

// Validate implements call.Tool.
func (*ReadFile) Validate(params map[string]any) error {
	_, err := stringParam(params, "path")
	return err
}

// Describe implements call.Tool.
func (*ReadFile) Describe(params map[string]any) string {
	path, err := stringParam(params, "path")
	if err != nil {
		return "read_file"
	}
	return "read " + path
}

// Confirmation implements call.Tool. Reading is side-effect free.
func (*ReadFile) Confirmation(map[string]any) *call.ConfirmationDetails { return nil }

// Execute implements call.Tool.
func (*ReadFile) Execute(_ context.Context, params map[string]any) (string, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// lineDiff renders a minimal removed/added line view of the change.
func lineDiff(original, updated string) string {
	if original == updated {
		return ""
	}
	var b strings.Builder
	if original != "" {
		for _, line := range strings.Split(strings.TrimSuffix(original, "\n"), "\n") {
			b.WriteString("- " + line + "\n")
		}
	}
	if updated != "" {
		for _, line := range strings.Split(strings.TrimSuffix(updated, "\n"), "\n") {
			b.WriteString("+ " + line + "\n")
		}
	}
	return b.String()
}
