// Package policy defines the auto-decision model for confirmation
// requests: profiles map tools and invocations to allow, deny, or ask.
// "Ask" defers the decision to an interactive source; allow and deny
// resolve the confirmation without human involvement.
package policy

// Decision is the result of evaluating a confirmation request against a
// Profile.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// ToolSelector identifies a tool and optionally an invocation pattern.
// Examples: Tool="read_file"; Tool="shell" Pattern="git status*".
type ToolSelector struct {
	Tool    string `json:"tool" yaml:"tool"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Rule maps a ToolSelector to a Decision.
type Rule struct {
	Selector ToolSelector `json:"selector" yaml:"selector"`
	Decision Decision     `json:"decision" yaml:"decision"`
}

// Profile is a named set of rules plus the decision applied when no rule
// matches. An empty Default means ask.
type Profile struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Default     Decision `json:"default,omitempty" yaml:"default,omitempty"`
	Rules       []Rule   `json:"rules" yaml:"rules"`
}
