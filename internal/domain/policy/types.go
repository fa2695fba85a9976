// Package policy contains domain types for policy documents and the rules
// that make up an effective policy: permission flags, blocked globs, command
// rules, and per-harness tool/MCP-server rules.
package policy

// Decision is the outcome of a single rule match.
type Decision string

const (
	// DecisionAllow permits the tool call to proceed.
	DecisionAllow Decision = "allow"
	// DecisionDeny blocks the tool call.
	DecisionDeny Decision = "deny"
	// DecisionPrompt allows the call but flags it for user confirmation.
	DecisionPrompt Decision = "prompt"
)

// strictness ranks decisions so the stricter of two always wins a merge.
// deny > prompt > allow.
var strictness = map[Decision]int{
	DecisionDeny:   2,
	DecisionPrompt: 1,
	DecisionAllow:  0,
}

// Stricter returns the more restrictive of two decisions.
func Stricter(a, b Decision) Decision {
	if strictness[a] >= strictness[b] {
		return a
	}
	return b
}

// CommandRule matches a shell command string via a case-insensitive regular
// expression. Patterns are evaluated in order; the first match wins.
type CommandRule struct {
	Pattern  string   `yaml:"pattern" json:"pattern" validate:"required"`
	Decision Decision `yaml:"decision" json:"decision" validate:"required,oneof=allow prompt deny"`
	Reason   string   `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// ToolRule matches a tool name, case-insensitively, either exactly or as a
// trailing-wildcard prefix ("prefix*"). Middle/leading wildcards are not
// supported — see spec.md §9 Open Questions.
type ToolRule struct {
	Pattern  string   `yaml:"pattern" json:"pattern" validate:"required"`
	Decision Decision `yaml:"decision" json:"decision" validate:"required,oneof=allow prompt deny"`
}

// McpServerRule matches the server segment of an MCP-namespaced tool name
// (canonical form mcp__<server>__<tool>).
type McpServerRule struct {
	Server   string   `yaml:"server" json:"server" validate:"required"`
	Decision Decision `yaml:"decision" json:"decision" validate:"required,oneof=allow prompt deny"`
}

// ArgumentRule is a SPEC_FULL.md addition: an optional CEL expression
// evaluated against the tool call's arguments and context. Strictly opt-in;
// absent or empty disables the step entirely (see SPEC_FULL.md §4.2 step 6.5).
type ArgumentRule struct {
	Pattern  string   `yaml:"pattern" json:"pattern" validate:"required"` // CEL expression
	Decision Decision `yaml:"decision" json:"decision" validate:"required,oneof=allow prompt deny"`
}

// Permissions holds the coarse allow flags and the destructive-confirmation
// toggle for a policy document.
type Permissions struct {
	AllowBash          bool `yaml:"allowBash" json:"allowBash"`
	AllowNetwork       bool `yaml:"allowNetwork" json:"allowNetwork"`
	AllowFileWrite     bool `yaml:"allowFileWrite" json:"allowFileWrite"`
	ConfirmDestructive bool `yaml:"confirmDestructive" json:"confirmDestructive"`
}

// HarnessConfig carries per-harness rule lists and legacy allow/deny arrays,
// plus harness-specific fields used only by the config generator (§4.5).
type HarnessConfig struct {
	ToolRules      []ToolRule      `yaml:"toolRules,omitempty" json:"toolRules,omitempty"`
	McpServerRules []McpServerRule `yaml:"mcpServerRules,omitempty" json:"mcpServerRules,omitempty"`
	ArgumentRules  []ArgumentRule  `yaml:"argumentRules,omitempty" json:"argumentRules,omitempty"`

	// Legacy backward-compatibility arrays (§4.2 step 4).
	AllowedTools []string `yaml:"allowedTools,omitempty" json:"allowedTools,omitempty"`
	DeniedTools  []string `yaml:"deniedTools,omitempty" json:"deniedTools,omitempty"`

	// Codex-specific fields.
	ApprovalMode     string   `yaml:"approvalMode,omitempty" json:"approvalMode,omitempty"` // auto|read-only|full
	Sandbox          string   `yaml:"sandbox,omitempty" json:"sandbox,omitempty"`           // strict|moderate|permissive
	EnvInherit       string   `yaml:"envInherit,omitempty" json:"envInherit,omitempty"`     // core|none
	EnvExclude       []string `yaml:"envExclude,omitempty" json:"envExclude,omitempty"`
	Features         []string `yaml:"features,omitempty" json:"features,omitempty"`
	DisabledMcpTools []string `yaml:"disabledMcpTools,omitempty" json:"disabledMcpTools,omitempty"`
}

// PolicyDocument is the top-level, addressable unit of policy.
//
// CommandRules is a pointer-like "present vs absent" slice: nil means "use
// the built-in defaults" (§6), a non-nil empty slice means "opt out of all
// defaults". Callers must not collapse the two.
type PolicyDocument struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	Permissions  Permissions   `yaml:"permissions" json:"permissions"`
	BlockedGlobs []string      `yaml:"blockedGlobs,omitempty" json:"blockedGlobs,omitempty"`
	CommandRules []CommandRule `yaml:"commandRules" json:"commandRules"` // nil vs [] is significant; see above

	Harnesses map[string]HarnessConfig `yaml:"harnesses,omitempty" json:"harnesses,omitempty"`
}

// Clone returns a deep copy of the policy document so resolver output never
// shares backing arrays/maps with its inputs (I4: resolution is pure).
func (p PolicyDocument) Clone() PolicyDocument {
	out := p
	out.BlockedGlobs = append([]string(nil), p.BlockedGlobs...)
	if p.CommandRules != nil {
		out.CommandRules = append(make([]CommandRule, 0, len(p.CommandRules)), p.CommandRules...)
	}
	if p.Harnesses != nil {
		out.Harnesses = make(map[string]HarnessConfig, len(p.Harnesses))
		for k, v := range p.Harnesses {
			out.Harnesses[k] = v.clone()
		}
	}
	return out
}

func (h HarnessConfig) clone() HarnessConfig {
	out := h
	out.ToolRules = append([]ToolRule(nil), h.ToolRules...)
	out.McpServerRules = append([]McpServerRule(nil), h.McpServerRules...)
	out.ArgumentRules = append([]ArgumentRule(nil), h.ArgumentRules...)
	out.AllowedTools = append([]string(nil), h.AllowedTools...)
	out.DeniedTools = append([]string(nil), h.DeniedTools...)
	out.EnvExclude = append([]string(nil), h.EnvExclude...)
	out.Features = append([]string(nil), h.Features...)
	out.DisabledMcpTools = append([]string(nil), h.DisabledMcpTools...)
	return out
}
