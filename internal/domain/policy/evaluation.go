package policy

import (
	"fmt"
	"path/filepath"
)

// EvaluationResult captures which rule decided a confirmation request and why.
type EvaluationResult struct {
	Decision  Decision `json:"decision"`
	Profile   string   `json:"profile"`
	RuleIndex int      `json:"rule_index"` // -1 if no rule matched (profile default)
	Reason    string   `json:"reason"`
}

// Evaluate checks a tool invocation against the profile's rules using
// first-match-wins. If no rule matches, the profile's default applies;
// an unset default means ask.
func (p *Profile) Evaluate(tool, invocation string) EvaluationResult {
	for i := range p.Rules {
		rule := &p.Rules[i]
		if !match(rule.Selector.Tool, tool) {
			continue
		}
		if rule.Selector.Pattern != "" && !match(rule.Selector.Pattern, invocation) {
			continue
		}
		return EvaluationResult{
			Decision:  rule.Decision,
			Profile:   p.Name,
			RuleIndex: i,
			Reason:    fmt.Sprintf("matched rule[%d]: tool=%q", i, rule.Selector.Tool),
		}
	}

	def := p.Default
	if def == "" {
		def = DecisionAsk
	}
	return EvaluationResult{
		Decision:  def,
		Profile:   p.Name,
		RuleIndex: -1,
		Reason:    "no matching rule; profile default",
	}
}

// match checks whether a selector pattern matches a name.
// Supports glob-style wildcards via filepath.Match:
//   - "*" matches everything
//   - "git status*" matches "git status --short"
//   - "read_file" matches exactly
func match(pattern, name string) bool {
	if pattern == name {
		return true
	}
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
