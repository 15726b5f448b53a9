// Package tools provides the built-in tool implementations and the
// registry the scheduler resolves tool names through.
package tools

import (
	"fmt"
	"sync"

	"github.com/Strob0t/ToolGate/internal/domain/call"
)

// Registry is a thread-safe name -> tool map.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]call.Tool
}

// NewRegistry creates a registry pre-loaded with the given tools.
func NewRegistry(ts ...call.Tool) *Registry {
	r := &Registry{tools: make(map[string]call.Tool, len(ts))}
	for _, t := range ts {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t call.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (call.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Builtin returns a registry with every built-in tool registered.
func Builtin() *Registry {
	return NewRegistry(
		&Shell{},
		&WriteFile{},
		&ReadFile{},
		&Fetch{},
	)
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}
