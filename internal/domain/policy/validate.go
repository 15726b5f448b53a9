package policy

import "fmt"

// Validate checks that a Profile is well-formed.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy: name is required")
	}
	if p.Default != "" && !isValidDecision(p.Default) {
		return fmt.Errorf("policy: invalid default decision %q", p.Default)
	}
	for i := range p.Rules {
		if err := p.Rules[i].Validate(); err != nil {
			return fmt.Errorf("policy: rule[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks that a Rule is well-formed.
func (r *Rule) Validate() error {
	if r.Selector.Tool == "" {
		return fmt.Errorf("tool is required")
	}
	if !isValidDecision(r.Decision) {
		return fmt.Errorf("invalid decision %q", r.Decision)
	}
	return nil
}

func isValidDecision(d Decision) bool {
	switch d {
	case DecisionAllow, DecisionDeny, DecisionAsk:
		return true
	}
	return false
}
