package policy

// computeStrictestBaseline and resolvePolicy are pure functions: no I/O, no
// hidden state, same inputs always produce the same effective policy (I4).

// ComputeStrictestBaseline combines every stored policy into a synthetic
// most-restrictive policy, used whenever a session's assigned policy cannot
// be resolved (spec.md §4.1).
//
// harnessID, when non-empty, restricts the returned harness map to that
// harness's merged config plus nothing else; when empty, every harness seen
// across the input policies is merged and returned.
func ComputeStrictestBaseline(policies []PolicyDocument, harnessID string) PolicyDocument {
	out := PolicyDocument{
		ID:   "strictest-baseline",
		Name: "Strictest Baseline",
		Permissions: Permissions{
			AllowBash:          true,
			AllowNetwork:       true,
			AllowFileWrite:     true,
			ConfirmDestructive: false,
		},
		Harnesses: make(map[string]HarnessConfig),
	}

	globSeen := make(map[string]bool)
	toolRules := make(map[string][]ToolRule) // harnessID -> keyed-merged rules, built incrementally
	mcpRules := make(map[string][]McpServerRule)

	toolRuleIdx := make(map[string]map[string]int) // harnessID -> pattern -> index in toolRules[h]
	mcpRuleIdx := make(map[string]map[string]int)  // harnessID -> server -> index in mcpRules[h]

	for _, p := range policies {
		out.Permissions.AllowBash = out.Permissions.AllowBash && p.Permissions.AllowBash
		out.Permissions.AllowNetwork = out.Permissions.AllowNetwork && p.Permissions.AllowNetwork
		out.Permissions.AllowFileWrite = out.Permissions.AllowFileWrite && p.Permissions.AllowFileWrite
		out.Permissions.ConfirmDestructive = out.Permissions.ConfirmDestructive || p.Permissions.ConfirmDestructive

		for _, g := range p.BlockedGlobs {
			if !globSeen[g] {
				globSeen[g] = true
				out.BlockedGlobs = append(out.BlockedGlobs, g)
			}
		}

		out.CommandRules = append(out.CommandRules, p.CommandRules...)

		for hid, hc := range p.Harnesses {
			if harnessID != "" && hid != harnessID {
				continue
			}
			if toolRuleIdx[hid] == nil {
				toolRuleIdx[hid] = make(map[string]int)
			}
			if mcpRuleIdx[hid] == nil {
				mcpRuleIdx[hid] = make(map[string]int)
			}

			for _, tr := range hc.ToolRules {
				if idx, ok := toolRuleIdx[hid][tr.Pattern]; ok {
					existing := toolRules[hid][idx]
					existing.Decision = Stricter(existing.Decision, tr.Decision)
					toolRules[hid][idx] = existing
				} else {
					toolRuleIdx[hid][tr.Pattern] = len(toolRules[hid])
					toolRules[hid] = append(toolRules[hid], tr)
				}
			}

			for _, mr := range hc.McpServerRules {
				if idx, ok := mcpRuleIdx[hid][mr.Server]; ok {
					existing := mcpRules[hid][idx]
					existing.Decision = Stricter(existing.Decision, mr.Decision)
					mcpRules[hid][idx] = existing
				} else {
					mcpRuleIdx[hid][mr.Server] = len(mcpRules[hid])
					mcpRules[hid] = append(mcpRules[hid], mr)
				}
			}
		}
	}

	for hid, rules := range toolRules {
		hc := out.Harnesses[hid]
		hc.ToolRules = rules
		out.Harnesses[hid] = hc
	}
	for hid, rules := range mcpRules {
		hc := out.Harnesses[hid]
		hc.McpServerRules = rules
		out.Harnesses[hid] = hc
	}

	return out
}

// ResolvePolicy merges a base policy with a nullable session override into
// the effective policy fed to the evaluator (spec.md §4.1).
func ResolvePolicy(base PolicyDocument, override *PolicyDocument) PolicyDocument {
	out := base.Clone()
	if override == nil {
		return out
	}

	// Permissions has no per-field "present" sentinel; presence is modeled at
	// the PolicyDocument level, so a non-nil override always supplies all
	// four permission fields (spec.md §4.1).
	out.Permissions = override.Permissions

	globSeen := make(map[string]bool, len(out.BlockedGlobs))
	for _, g := range out.BlockedGlobs {
		globSeen[g] = true
	}
	for _, g := range override.BlockedGlobs {
		if !globSeen[g] {
			globSeen[g] = true
			out.BlockedGlobs = append(out.BlockedGlobs, g)
		}
	}

	// commandRules ordering is semantically significant, so an override
	// replaces the base's list wholesale rather than merging (spec.md §4.1).
	if override.CommandRules != nil {
		out.CommandRules = append(make([]CommandRule, 0, len(override.CommandRules)), override.CommandRules...)
	}

	if len(override.Harnesses) > 0 {
		if out.Harnesses == nil {
			out.Harnesses = make(map[string]HarnessConfig)
		}
		for hid, oh := range override.Harnesses {
			out.Harnesses[hid] = mergeHarnessConfig(out.Harnesses[hid], oh)
		}
	}

	return out
}

// mergeHarnessConfig merges one harness's config field-by-field: toolRules
// and mcpServerRules/argumentRules merge by key with override replacing base
// on collision; every other field takes the override's value when set.
func mergeHarnessConfig(base, override HarnessConfig) HarnessConfig {
	out := base.clone()

	out.ToolRules = mergeToolRules(out.ToolRules, override.ToolRules)
	out.McpServerRules = mergeMcpRules(out.McpServerRules, override.McpServerRules)
	out.ArgumentRules = mergeArgumentRules(out.ArgumentRules, override.ArgumentRules)

	if override.AllowedTools != nil {
		out.AllowedTools = append([]string(nil), override.AllowedTools...)
	}
	if override.DeniedTools != nil {
		out.DeniedTools = append([]string(nil), override.DeniedTools...)
	}
	if override.ApprovalMode != "" {
		out.ApprovalMode = override.ApprovalMode
	}
	if override.Sandbox != "" {
		out.Sandbox = override.Sandbox
	}
	if override.EnvInherit != "" {
		out.EnvInherit = override.EnvInherit
	}
	if override.EnvExclude != nil {
		out.EnvExclude = append([]string(nil), override.EnvExclude...)
	}
	if override.Features != nil {
		out.Features = append([]string(nil), override.Features...)
	}
	if override.DisabledMcpTools != nil {
		out.DisabledMcpTools = append([]string(nil), override.DisabledMcpTools...)
	}

	return out
}

func mergeToolRules(base, override []ToolRule) []ToolRule {
	if len(override) == 0 {
		return base
	}
	idx := make(map[string]int, len(base))
	out := append([]ToolRule(nil), base...)
	for i, r := range out {
		idx[r.Pattern] = i
	}
	for _, r := range override {
		if i, ok := idx[r.Pattern]; ok {
			out[i] = r
		} else {
			idx[r.Pattern] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func mergeMcpRules(base, override []McpServerRule) []McpServerRule {
	if len(override) == 0 {
		return base
	}
	idx := make(map[string]int, len(base))
	out := append([]McpServerRule(nil), base...)
	for i, r := range out {
		idx[r.Server] = i
	}
	for _, r := range override {
		if i, ok := idx[r.Server]; ok {
			out[i] = r
		} else {
			idx[r.Server] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func mergeArgumentRules(base, override []ArgumentRule) []ArgumentRule {
	if len(override) == 0 {
		return base
	}
	idx := make(map[string]int, len(base))
	out := append([]ArgumentRule(nil), base...)
	for i, r := range out {
		idx[r.Pattern] = i
	}
	for _, r := range override {
		if i, ok := idx[r.Pattern]; ok {
			out[i] = r
		} else {
			idx[r.Pattern] = len(out)
			out = append(out, r)
		}
	}
	return out
}
