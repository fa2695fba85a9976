// Package harnessgen implements harness.Generator for each harness named in
// spec.md §4.5: Claude, Codex, OpenClaw, and a launch-flag-only fallback for
// Droid and anything unrecognized.
package harnessgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
)

// harmlessTools are the read-only tools an explicit allow ToolRule is
// worth writing statically for; everything else an allow rule matches is
// already permitted by Claude's default-allow posture, so baking it in
// would only bloat the settings file without changing behavior.
var harmlessTools = map[string]bool{
	"Read": true, "Glob": true, "Grep": true, "NotebookRead": true,
}

// ClaudeGenerator implements harness.Generator for Claude Code.
type ClaudeGenerator struct{}

var _ harness.Generator = ClaudeGenerator{}

func (ClaudeGenerator) LaunchFlags(pol policy.PolicyDocument, harnessID string) []string {
	return nil
}

func (ClaudeGenerator) Enforce(pol policy.PolicyDocument, dir string, sessionID string, authz *harness.AuthzOptions) ([]harness.WrittenFile, error) {
	if err := harness.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	claudeDir := filepath.Join(dir, ".claude")
	if err := os.MkdirAll(claudeDir, 0755); err != nil {
		return nil, fmt.Errorf("harnessgen/claude: create .claude dir: %w", err)
	}

	var written []harness.WrittenFile

	settingsPath := filepath.Join(claudeDir, "settings.json")
	if err := writeClaudeSettings(settingsPath, pol, authz); err != nil {
		return nil, err
	}
	written = append(written, harness.WrittenFile{Path: ".claude/settings.json", Mode: 0644})

	if authz != nil {
		scriptPath := filepath.Join(claudeDir, "latch-authz.sh")
		if err := writeClaudeAuthzScript(scriptPath, sessionID, *authz); err != nil {
			return nil, err
		}
		written = append(written, harness.WrittenFile{Path: ".claude/latch-authz.sh", Mode: 0755})
	}

	return written, nil
}

func writeClaudeSettings(path string, pol policy.PolicyDocument, authz *harness.AuthzOptions) error {
	var settings map[string]interface{}
	if existing, err := os.ReadFile(path); err == nil {
		if jsonErr := json.Unmarshal(existing, &settings); jsonErr != nil {
			settings = make(map[string]interface{})
		}
	} else {
		settings = make(map[string]interface{})
	}

	deny, allow := claudePermissionLists(pol)

	settings["permissions"] = map[string]interface{}{
		"deny":  deny,
		"allow": allow,
	}

	if authz != nil {
		settings["hooks"] = map[string]interface{}{
			"PreToolUse": []interface{}{
				map[string]interface{}{
					"matcher": "Read|Write|Edit|Bash|Glob|Grep|WebFetch|WebSearch|NotebookEdit",
					"hooks": []interface{}{
						map[string]interface{}{
							"type":    "command",
							"command": filepath.Join(".claude", "latch-authz.sh"),
							"timeout": 10,
						},
					},
				},
			},
		}
	} else {
		delete(settings, "hooks")
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("harnessgen/claude: marshal settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("harnessgen/claude: write settings.json: %w", err)
	}
	return nil
}

// claudePermissionLists maps an effective policy to Claude's static
// deny/allow permission arrays (spec.md §4.5).
func claudePermissionLists(pol policy.PolicyDocument) (deny, allow []string) {
	if !pol.Permissions.AllowBash {
		deny = append(deny, "Bash")
	}
	if !pol.Permissions.AllowFileWrite {
		deny = append(deny, "Write", "Edit")
	}
	if !pol.Permissions.AllowNetwork {
		deny = append(deny, "WebFetch", "WebSearch")
	}

	for _, glob := range pol.BlockedGlobs {
		deny = append(deny, fmt.Sprintf("Write(%s)", glob), fmt.Sprintf("Edit(%s)", glob), fmt.Sprintf("Read(%s)", glob))
	}

	hc := pol.Harnesses["claude"]
	for _, rule := range hc.ToolRules {
		switch rule.Decision {
		case policy.DecisionDeny:
			deny = append(deny, rule.Pattern)
		case policy.DecisionAllow:
			if harmlessTools[rule.Pattern] {
				allow = append(allow, rule.Pattern)
			}
		}
		// DecisionPrompt is handled only by the runtime hook, never added
		// statically (spec.md §4.5).
	}
	deny = append(deny, hc.DeniedTools...)

	return deny, allow
}

// writeClaudeAuthzScript writes the PreToolUse hook script that calls the
// authorization server for every gated tool call (spec.md §6: bit-exact
// curl flags and response-code branching).
func writeClaudeAuthzScript(path, sessionID string, authz harness.AuthzOptions) error {
	script := fmt.Sprintf(`#!/usr/bin/env bash
# generated; do not edit
set -u

session_id=%q
port=%d
secret=%q

input="$(cat)"
status="$(curl -s -o /tmp/latch-authz-resp.$$ -w '%%{http_code}' \
  --connect-timeout 3 --max-time 5 \
  -H "Authorization: Bearer ${secret}" \
  -H "Content-Type: application/json" \
  -d "${input}" \
  "http://127.0.0.1:${port}/authorize/${session_id}")"

case "${status}" in
  200)
    rm -f /tmp/latch-authz-resp.$$
    # No output: Claude's own native confirmation prompt still runs. The
    # core only adds a deny fast-path, it never overrides an allow.
    exit 0
    ;;
  403)
    rm -f /tmp/latch-authz-resp.$$
    echo '{"hookSpecificOutput":{"hookEventName":"PreToolUse","permissionDecision":"deny"}}'
    exit 0
    ;;
  *)
    rm -f /tmp/latch-authz-resp.$$
    # Network failure: fail open so the harness never gets bricked; the
    # harness's own native prompt still gets a chance to run.
    exit 0
    ;;
esac
`, sessionID, authz.Port, authz.Secret)

	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return fmt.Errorf("harnessgen/claude: write latch-authz.sh: %w", err)
	}
	return nil
}
