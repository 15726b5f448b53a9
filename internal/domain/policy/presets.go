package policy

// PresetInteractive returns the "interactive" preset: every confirmation
// is deferred to the human decision source.
func PresetInteractive() Profile {
	return Profile{
		Name:        "interactive",
		Description: "Ask the user about every confirmation request.",
		Default:     DecisionAsk,
	}
}

// PresetSafeAuto returns the "safe-auto" preset: read-only and
// well-known safe invocations proceed automatically, destructive shell
// commands are denied, everything else is asked.
func PresetSafeAuto() Profile {
	return Profile{
		Name:        "safe-auto",
		Description: "Auto-approve safe invocations, deny destructive ones, ask otherwise.",
		Default:     DecisionAsk,
		Rules: []Rule{
			{Selector: ToolSelector{Tool: "read_file"}, Decision: DecisionAllow},
			{Selector: ToolSelector{Tool: "shell", Pattern: "rm *"}, Decision: DecisionDeny},
			{Selector: ToolSelector{Tool: "shell", Pattern: "sudo *"}, Decision: DecisionDeny},
			{Selector: ToolSelector{Tool: "shell", Pattern: "git status*"}, Decision: DecisionAllow},
			{Selector: ToolSelector{Tool: "shell", Pattern: "git diff*"}, Decision: DecisionAllow},
			{Selector: ToolSelector{Tool: "shell", Pattern: "git log*"}, Decision: DecisionAllow},
		},
	}
}

// PresetFullAuto returns the "full-auto" preset: every confirmation is
// approved without asking. Meant for trusted batch jobs and tests.
func PresetFullAuto() Profile {
	return Profile{
		Name:        "full-auto",
		Description: "Approve every confirmation request automatically.",
		Default:     DecisionAllow,
	}
}

// PresetNames returns the names of all built-in presets.
func PresetNames() []string {
	return []string{"interactive", "safe-auto", "full-auto"}
}

// PresetByName returns a preset by name, or false if not found.
func PresetByName(name string) (Profile, bool) {
	switch name {
	case "interactive":
		return PresetInteractive(), true
	case "safe-auto":
		return PresetSafeAuto(), true
	case "full-auto":
		return PresetFullAuto(), true
	default:
		return Profile{}, false
	}
}
