package harnessgen

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
)

const (
	codexMarkerStart = "# latch:mcp:start"
	codexMarkerEnd   = "# latch:mcp:end"
)

// approvalModeMap and sandboxMap implement the Codex vocabulary table in
// spec.md §6.
var approvalModeMap = map[string]string{
	"auto":      "never",
	"read-only": "on-request",
	"full":      "untrusted",
}

var sandboxMap = map[string]string{
	"strict":     "read-only",
	"moderate":   "workspace-write",
	"permissive": "danger-full-access",
}

// regexMetachar detects patterns that are not plain shell token prefixes
// and therefore cannot be expressed as a Codex prefix_rule (spec.md §4.5:
// "Complex regexes ... are skipped").
var regexMetachar = regexp.MustCompile(`[.^$*+?()\[\]{}|\\]`)

// CodexGenerator implements harness.Generator for Codex.
type CodexGenerator struct{}

var _ harness.Generator = CodexGenerator{}

func (CodexGenerator) LaunchFlags(pol policy.PolicyDocument, harnessID string) []string {
	hc := pol.Harnesses["codex"]
	flags := []string{"--approval-mode", codexApprovalMode(hc), "--sandbox", codexSandbox(hc)}
	return append(flags, "--full-auto")
}

func (CodexGenerator) Enforce(pol policy.PolicyDocument, dir string, sessionID string, authz *harness.AuthzOptions) ([]harness.WrittenFile, error) {
	if err := harness.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	codexDir := filepath.Join(dir, ".codex")
	rulesDir := filepath.Join(codexDir, "rules")
	if err := os.MkdirAll(rulesDir, 0755); err != nil {
		return nil, fmt.Errorf("harnessgen/codex: create .codex dirs: %w", err)
	}

	var written []harness.WrittenFile

	configPath := filepath.Join(codexDir, "config.toml")
	if err := writeCodexConfig(configPath, pol, authz); err != nil {
		return nil, err
	}
	written = append(written, harness.WrittenFile{Path: ".codex/config.toml", Mode: 0644})

	rulesPath := filepath.Join(rulesDir, "latch-policy.rules")
	if err := writeCodexRules(rulesPath, pol); err != nil {
		return nil, err
	}
	written = append(written, harness.WrittenFile{Path: ".codex/rules/latch-policy.rules", Mode: 0644})

	if authz != nil {
		notifyPath := filepath.Join(codexDir, "latch-notify.sh")
		if err := writeCodexNotifyScript(notifyPath, sessionID, *authz); err != nil {
			return nil, err
		}
		written = append(written, harness.WrittenFile{Path: ".codex/latch-notify.sh", Mode: 0755})
	}

	return written, nil
}

func codexApprovalMode(hc policy.HarnessConfig) string {
	if v, ok := approvalModeMap[hc.ApprovalMode]; ok {
		return v
	}
	return approvalModeMap["read-only"]
}

func codexSandbox(hc policy.HarnessConfig) string {
	if v, ok := sandboxMap[hc.Sandbox]; ok {
		return v
	}
	return sandboxMap["moderate"]
}

// codexGenerated is the subset of config.toml marshaled between the
// latch:mcp markers.
type codexGenerated struct {
	ApprovalMode string                    `toml:"approval_policy"`
	SandboxMode  string                    `toml:"sandbox_mode"`
	ShellEnv     codexShellEnvPolicy       `toml:"shell_environment_policy"`
	Features     map[string]bool           `toml:"features,omitempty"`
	McpServers   map[string]codexMcpServer `toml:"mcp_servers,omitempty"`
}

type codexShellEnvPolicy struct {
	Inherit string   `toml:"inherit"`
	Exclude []string `toml:"exclude"`
}

type codexMcpServer struct {
	DisabledTools []string `toml:"disabled_tools,omitempty"`
}

func writeCodexConfig(path string, pol policy.PolicyDocument, authz *harness.AuthzOptions) error {
	hc := pol.Harnesses["codex"]

	envInherit := hc.EnvInherit
	if envInherit == "" {
		envInherit = "core"
	}
	exclude := hc.EnvExclude
	if exclude == nil {
		exclude = []string{"AWS_*", "GCP_*", "OPENAI_*"}
	}

	features := make(map[string]bool)
	if !pol.Permissions.AllowBash {
		features["shell_tool"] = false
	}
	if !pol.Permissions.AllowNetwork {
		features["web_search"] = false
		features["web_search_request"] = false
	}

	disabled := make([]string, 0, len(hc.DisabledMcpTools))
	disabled = append(disabled, hc.DisabledMcpTools...)
	for _, rule := range hc.ToolRules {
		if rule.Decision == policy.DecisionDeny {
			disabled = append(disabled, rule.Pattern)
		}
	}
	for _, rule := range hc.McpServerRules {
		if rule.Decision == policy.DecisionDeny {
			disabled = append(disabled, rule.Server+"/*")
		}
	}

	gen := codexGenerated{
		ApprovalMode: codexApprovalMode(hc),
		SandboxMode:  codexSandbox(hc),
		ShellEnv:     codexShellEnvPolicy{Inherit: envInherit, Exclude: exclude},
		Features:     features,
	}
	if len(disabled) > 0 {
		gen.McpServers = map[string]codexMcpServer{"latch-policy": {DisabledTools: disabled}}
	}

	if authz != nil {
		gen.ShellEnv.Exclude = append(gen.ShellEnv.Exclude, "LATCH_*")
	}

	body, err := toml.Marshal(gen)
	if err != nil {
		return fmt.Errorf("harnessgen/codex: marshal generated config: %w", err)
	}

	block := fmt.Sprintf("%s\n# generated; do not edit\n%s%s\n", codexMarkerStart, string(body), codexMarkerEnd)

	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}
	merged := spliceMarkedBlock(existing, codexMarkerStart, codexMarkerEnd, block)

	if err := os.WriteFile(path, []byte(merged), 0644); err != nil {
		return fmt.Errorf("harnessgen/codex: write config.toml: %w", err)
	}
	return nil
}

// spliceMarkedBlock replaces any existing marker-delimited region in
// existing with block, or appends block if no markers are present
// (spec.md §6: "prior content between markers replaced in place").
func spliceMarkedBlock(existing, startMarker, endMarker, block string) string {
	startIdx := strings.Index(existing, startMarker)
	endIdx := strings.Index(existing, endMarker)
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		if existing != "" && !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + block
	}
	endIdx += len(endMarker)
	return existing[:startIdx] + block + existing[endIdx:]
}

func writeCodexRules(path string, pol policy.PolicyDocument) error {
	var lines []string
	lines = append(lines, "# generated; do not edit")

	rules := pol.CommandRules
	for _, r := range rules {
		if regexMetachar.MatchString(r.Pattern) {
			continue // not a plain token prefix; enforced at the authz server instead
		}
		tokens := strings.Fields(r.Pattern)
		if len(tokens) == 0 {
			continue
		}
		justification := r.Reason
		if justification == "" {
			justification = "policy rule"
		}
		lines = append(lines, fmt.Sprintf(
			"prefix_rule(pattern = %s, decision = %q, justification = %q)",
			tomlStringList(tokens), codexDecisionWord(r.Decision), justification,
		))
	}

	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("harnessgen/codex: write latch-policy.rules: %w", err)
	}
	return nil
}

func codexDecisionWord(d policy.Decision) string {
	switch d {
	case policy.DecisionDeny:
		return "forbidden"
	case policy.DecisionPrompt:
		return "prompt"
	default:
		return "allow"
	}
}

func tomlStringList(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func writeCodexNotifyScript(path, sessionID string, authz harness.AuthzOptions) error {
	script := fmt.Sprintf(`#!/usr/bin/env bash
# generated; do not edit
set -u
curl -s --connect-timeout 3 --max-time 5 \
  -H "Authorization: Bearer %s" \
  -H "Content-Type: application/json" \
  -d "$(cat)" \
  "http://127.0.0.1:%d/notify/%s" >/dev/null 2>&1 || true
`, authz.Secret, authz.Port, sessionID)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return fmt.Errorf("harnessgen/codex: write latch-notify.sh: %w", err)
	}
	return nil
}
