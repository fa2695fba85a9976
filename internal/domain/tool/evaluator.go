package tool

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// mcpPrefix is the canonical MCP tool-name namespace prefix.
const mcpPrefix = "mcp__"

// ArgumentEvaluator evaluates a SPEC_FULL.md ArgumentRule's CEL expression
// against a call. Implementations must be deterministic and side-effect
// free (see internal/adapter/outbound/cel for the concrete implementation);
// the Tool Classifier & Rule Evaluator otherwise performs no I/O (I5).
type ArgumentEvaluator interface {
	Eval(expr string, call Call, class ActionClass) (bool, error)
}

// Evaluator maps a tool invocation to a verdict against an effective policy.
// The zero value is usable and skips the optional ArgumentRule step.
type Evaluator struct {
	// ArgEval, when set, powers SPEC_FULL.md §4.2 step 6.5. Nil disables
	// ArgumentRule evaluation entirely (harnesses that never set
	// argumentRules are unaffected either way).
	ArgEval ArgumentEvaluator
}

// Evaluate is deterministic for fixed (call, pol): same inputs, same verdict
// (I4), and performs no further store reads (I5) — policy pol must already
// be the fully-resolved effective policy for this decision.
func (e *Evaluator) Evaluate(call Call, pol policy.PolicyDocument) Verdict {
	class := Classify(call.ToolName)
	norm := normalize(call.ToolName)

	// Step 1: action-class gate.
	switch class {
	case ActionExecute:
		if !pol.Permissions.AllowBash {
			return Verdict{Decision: policy.DecisionDeny, Reason: "Policy disallows shell execution."}
		}
	case ActionWrite:
		if !pol.Permissions.AllowFileWrite {
			return Verdict{Decision: policy.DecisionDeny, Reason: "Policy disallows file writes."}
		}
	case ActionSend:
		if !pol.Permissions.AllowNetwork {
			return Verdict{Decision: policy.DecisionDeny, Reason: "Policy disallows network access."}
		}
	}

	hc := pol.Harnesses[call.HarnessID]

	// Step 2: per-harness tool rules.
	suppressFurtherRules := false
	if v, matched, suppress := matchToolRules(hc.ToolRules, call.ToolName); matched {
		if v.Decision == policy.DecisionDeny {
			return v
		}
		suppressFurtherRules = suppress
		if v.Decision == policy.DecisionPrompt {
			return Verdict{Decision: policy.DecisionAllow, Reason: v.Reason, NeedsPrompt: true}
		}
		// DecisionAllow: suppress further rule checks except blocked-globs.
	}

	// Step 3: MCP-server rules.
	if !suppressFurtherRules {
		if server, _, ok := parseMcpName(call.ToolName); ok {
			if v, matched, suppress := matchMcpRules(hc.McpServerRules, server); matched {
				if v.Decision == policy.DecisionDeny {
					return v
				}
				suppressFurtherRules = suppress
				if v.Decision == policy.DecisionPrompt {
					return Verdict{Decision: policy.DecisionAllow, Reason: v.Reason, NeedsPrompt: true}
				}
			}
		}
	}

	// Step 4: legacy arrays.
	if !suppressFurtherRules {
		for _, denied := range hc.DeniedTools {
			if strings.EqualFold(denied, call.ToolName) {
				return Verdict{Decision: policy.DecisionDeny, Reason: "Tool is in the denied-tools list."}
			}
		}
		if len(hc.AllowedTools) > 0 {
			found := false
			for _, allowed := range hc.AllowedTools {
				if strings.EqualFold(allowed, call.ToolName) {
					found = true
					break
				}
			}
			if !found {
				return Verdict{Decision: policy.DecisionDeny, Reason: "Tool is not in the allowed-tools list."}
			}
		}
	}

	// Step 5: blocked globs (read/write/edit only). Runs regardless of
	// suppressFurtherRules — an allow tool-rule never suppresses this check.
	if norm == "read" || norm == "write" || norm == "edit" {
		if path := extractPath(call.ToolInput); path != "" {
			for _, glob := range pol.BlockedGlobs {
				if MatchGlob(path, glob) {
					return Verdict{Decision: policy.DecisionDeny, Reason: fmt.Sprintf("Path matches blocked glob '%s'.", glob)}
				}
			}
		}
	}

	// Step 6: command rules (bash/exec/execute only).
	if !suppressFurtherRules && (norm == "bash" || norm == "exec" || norm == "execute") {
		if v, stop := evaluateCommandRules(pol, call.ToolInput); stop {
			return v
		}
	}

	// Step 6.5 (SPEC_FULL.md addition): optional CEL argument rules.
	if !suppressFurtherRules && e.ArgEval != nil {
		if v, stop := e.evaluateArgumentRules(hc.ArgumentRules, call, class); stop {
			return v
		}
	}

	// Step 7: default allow.
	return Verdict{Decision: policy.DecisionAllow}
}

// toolRuleMatch reports the decision a ToolRule produces, whether a
// collection matched at all, and whether an allow match should suppress
// legacy-array and MCP-rule checks (spec.md §4.2 step 2: "An allow rule
// suppresses further rule checks (but not the blocked-globs check)").
func matchToolRules(rules []policy.ToolRule, toolName string) (Verdict, bool, bool) {
	for _, r := range rules {
		if toolRulePatternMatches(r.Pattern, toolName) {
			switch r.Decision {
			case policy.DecisionDeny:
				return Verdict{Decision: policy.DecisionDeny, Reason: fmt.Sprintf("Tool rule '%s' denies this call.", r.Pattern)}, true, false
			case policy.DecisionPrompt:
				return Verdict{Decision: policy.DecisionPrompt, Reason: fmt.Sprintf("Tool rule '%s' requires confirmation.", r.Pattern)}, true, false
			default:
				return Verdict{Decision: policy.DecisionAllow}, true, true
			}
		}
	}
	return Verdict{}, false, false
}

// toolRulePatternMatches implements spec.md §3's ToolRule pattern semantics:
// exact (case-insensitive) match, or trailing-wildcard prefix match.
func toolRulePatternMatches(pattern, toolName string) bool {
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(strings.ToLower(toolName), strings.ToLower(prefix))
	}
	return strings.EqualFold(pattern, toolName)
}

func matchMcpRules(rules []policy.McpServerRule, server string) (Verdict, bool, bool) {
	for _, r := range rules {
		if strings.EqualFold(r.Server, server) {
			switch r.Decision {
			case policy.DecisionDeny:
				return Verdict{Decision: policy.DecisionDeny, Reason: fmt.Sprintf("MCP server rule '%s' denies this call.", r.Server)}, true, false
			case policy.DecisionPrompt:
				return Verdict{Decision: policy.DecisionPrompt, Reason: fmt.Sprintf("MCP server rule '%s' requires confirmation.", r.Server)}, true, false
			default:
				return Verdict{Decision: policy.DecisionAllow}, true, true
			}
		}
	}
	return Verdict{}, false, false
}

// parseMcpName splits a canonical mcp__<server>__<tool> name. ok is false
// for non-MCP-namespaced names.
func parseMcpName(toolName string) (server, tool string, ok bool) {
	if !strings.HasPrefix(toolName, mcpPrefix) {
		return "", "", false
	}
	rest := toolName[len(mcpPrefix):]
	idx := strings.Index(rest, "__")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+2:], true
}

// extractPath pulls file_path or path out of a tool call's input map.
func extractPath(input map[string]interface{}) string {
	if input == nil {
		return ""
	}
	if v, ok := input["file_path"].(string); ok && v != "" {
		return v
	}
	if v, ok := input["path"].(string); ok && v != "" {
		return v
	}
	return ""
}

// evaluateCommandRules runs the command-rule chain (spec.md §4.2 step 6).
// stop is true when a rule produced a terminal verdict (deny or prompt); a
// bare "allow" rule breaks the loop and falls through to the default.
func evaluateCommandRules(pol policy.PolicyDocument, input map[string]interface{}) (Verdict, bool) {
	command, _ := input["command"].(string)

	rules := pol.CommandRules
	if rules == nil {
		rules = DefaultCommandRules()
	}
	if len(rules) == 0 {
		return Verdict{}, false
	}

	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			// EvaluatorMalformedRule (spec.md §7): skip, keep evaluating.
			continue
		}
		if !re.MatchString(command) {
			continue
		}
		switch rule.Decision {
		case policy.DecisionDeny:
			reason := rule.Reason
			if reason == "" {
				reason = fmt.Sprintf("Command matches blocked pattern '%s'.", rule.Pattern)
			}
			return Verdict{Decision: policy.DecisionDeny, Reason: reason}, true
		case policy.DecisionPrompt:
			reason := rule.Reason
			if reason == "" {
				reason = fmt.Sprintf("Command matches pattern '%s' requiring confirmation.", rule.Pattern)
			}
			return Verdict{Decision: policy.DecisionAllow, Reason: reason, NeedsPrompt: true}, true
		case policy.DecisionAllow:
			return Verdict{}, false
		}
	}
	return Verdict{}, false
}

// evaluateArgumentRules runs the SPEC_FULL.md §4.2 step 6.5 CEL rule chain.
func (e *Evaluator) evaluateArgumentRules(rules []policy.ArgumentRule, call Call, class ActionClass) (Verdict, bool) {
	for _, rule := range rules {
		matched, err := e.ArgEval.Eval(rule.Pattern, call, class)
		if err != nil {
			// Malformed/uncompilable expression: skip, keep evaluating.
			continue
		}
		if !matched {
			continue
		}
		switch rule.Decision {
		case policy.DecisionDeny:
			return Verdict{Decision: policy.DecisionDeny, Reason: fmt.Sprintf("Argument rule '%s' denies this call.", rule.Pattern)}, true
		case policy.DecisionPrompt:
			return Verdict{Decision: policy.DecisionAllow, Reason: fmt.Sprintf("Argument rule '%s' requires confirmation.", rule.Pattern), NeedsPrompt: true}, true
		case policy.DecisionAllow:
			return Verdict{}, false
		}
	}
	return Verdict{}, false
}
