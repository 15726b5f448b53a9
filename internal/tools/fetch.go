package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// maxFetchBody caps how much of a fetched response is returned.
const maxFetchBody = 1 << 20

// Fetch retrieves a URL over HTTP. Confirmation is informational: the
// user sees which URL is about to be contacted.
type Fetch struct {
	// Client overrides http.DefaultClient when set (tests).
	Client *http.Client
}

// Name implements call.Tool.
func (*Fetch) Name() string { return "fetch" }

// Validate implements call.Tool.
func (*Fetch) Validate(params map[string]any) error {
	raw, err := stringParam(params, "url")
	if err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return nil
}

// Describe implements call.Tool.
func (*Fetch) Describe(params map[string]any) string {
	raw, err := stringParam(params, "url")
	if err != nil {
		return "fetch"
	}
	return "fetch " + raw
}

// Confirmation implements call.Tool.
func (*Fetch) Confirmation(params map[string]any) *call.ConfirmationDetails {
	raw, err := stringParam(params, "url")
	if err != nil {
		return nil
	}
	return &call.ConfirmationDetails{
		Kind:  call.ConfirmInfo,
		Title: fmt.Sprintf("Fetch URL: %s", raw),
		Info: &call.InfoConfirmation{
			Prompt: "The following URL will be fetched over the network.",
			URLs:   []string{raw},
		},
	}
}

// Execute implements call.Tool.
func (f *Fetch) Execute(ctx context.Context, params map[string]any) (string, error) {
	raw, err := stringParam(params, "url")
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", raw, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", raw, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", raw, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", fmt.Errorf("fetch %s: read body: %w", raw, err)
	}
	return string(body), nil
}
