package tool

import "github.com/latchagent/latch-core/internal/domain/policy"

// DefaultCommandRules returns the built-in CommandRule set used when a
// policy document's CommandRules field is nil (spec.md §6). Ported verbatim
// from the default table; order is normative.
func DefaultCommandRules() []policy.CommandRule {
	return []policy.CommandRule{
		{Pattern: `rm\s+-[^\s]*r[^\s]*\s+/`, Decision: policy.DecisionDeny, Reason: "Recursive delete of root paths"},
		{Pattern: `\b(mkfs|dd\s+of=/dev)`, Decision: policy.DecisionDeny, Reason: "Disk formatting"},
		{Pattern: `\bcat\s+.*(\.env|id_rsa|\.pem|\.key)\b`, Decision: policy.DecisionDeny, Reason: "Secret exfiltration"},
		{Pattern: `(curl|wget)\s+.*\|\s*(sh|bash|zsh)`, Decision: policy.DecisionDeny, Reason: "Pipe-to-shell"},
		{Pattern: `\b(shutdown|reboot|halt|poweroff)\b`, Decision: policy.DecisionDeny, Reason: "System power"},
		{Pattern: `chmod\s+(777|\+s)\b`, Decision: policy.DecisionDeny, Reason: "Broad permission change"},
		{Pattern: `\bsudo\b`, Decision: policy.DecisionPrompt, Reason: "Privilege escalation"},
		{Pattern: `git\s+push\s+.*--force`, Decision: policy.DecisionPrompt, Reason: "Destructive git"},
		{Pattern: `git\s+reset\s+--hard`, Decision: policy.DecisionPrompt, Reason: "Destructive git"},
	}
}
