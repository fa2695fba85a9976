package harnessgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

func TestCodexGenerator_Enforce_WritesFencedConfig(t *testing.T) {
	dir := t.TempDir()
	pol := policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: false, AllowNetwork: false},
		Harnesses: map[string]policy.HarnessConfig{
			"codex": {ApprovalMode: "read-only", Sandbox: "strict"},
		},
	}

	gen := CodexGenerator{}
	written, err := gen.Enforce(pol, dir, "s1", nil)
	if err != nil {
		t.Fatalf("Enforce() error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("len(written) = %d, want 2", len(written))
	}

	data, err := os.ReadFile(filepath.Join(dir, ".codex", "config.toml"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, codexMarkerStart) || !strings.Contains(content, codexMarkerEnd) {
		t.Fatal("config.toml missing latch:mcp markers")
	}
	if !strings.Contains(content, `approval_policy = 'on-request'`) && !strings.Contains(content, `approval_policy = "on-request"`) {
		t.Errorf("config.toml missing mapped approval_policy, got:\n%s", content)
	}
	if !strings.Contains(content, `sandbox_mode`) {
		t.Error("config.toml missing sandbox_mode")
	}
}

func TestCodexGenerator_Enforce_PreservesSurroundingContentOnResplice(t *testing.T) {
	dir := t.TempDir()
	codexDir := filepath.Join(dir, ".codex")
	if err := os.MkdirAll(codexDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	existing := "[model]\nname = \"gpt-5\"\n\n" + codexMarkerStart + "\nstale = true\n" + codexMarkerEnd + "\n\n[other]\nkeep = true\n"
	if err := os.WriteFile(filepath.Join(codexDir, "config.toml"), []byte(existing), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	gen := CodexGenerator{}
	if _, err := gen.Enforce(policy.PolicyDocument{}, dir, "s1", nil); err != nil {
		t.Fatalf("Enforce() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(codexDir, "config.toml"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "stale = true") {
		t.Error("stale generated content was not replaced")
	}
	if !strings.Contains(content, `name = "gpt-5"`) {
		t.Error("surrounding [model] block was not preserved")
	}
	if !strings.Contains(content, "[other]") || !strings.Contains(content, "keep = true") {
		t.Error("trailing [other] block was not preserved")
	}
}

func TestCodexGenerator_Enforce_RulesSkipComplexRegex(t *testing.T) {
	dir := t.TempDir()
	pol := policy.PolicyDocument{
		CommandRules: []policy.CommandRule{
			{Pattern: "sudo", Decision: policy.DecisionPrompt, Reason: "escalation"},
			{Pattern: `rm\s+-[^\s]*r[^\s]*\s+/`, Decision: policy.DecisionDeny, Reason: "recursive delete"},
		},
	}

	gen := CodexGenerator{}
	if _, err := gen.Enforce(pol, dir, "s1", nil); err != nil {
		t.Fatalf("Enforce() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".codex", "rules", "latch-policy.rules"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"sudo"`) {
		t.Errorf("rules file missing plain-token rule, got:\n%s", content)
	}
	if strings.Contains(content, `rm\s`) {
		t.Error("rules file should skip the complex regex rule")
	}
}

func TestCodexGenerator_LaunchFlags(t *testing.T) {
	pol := policy.PolicyDocument{Harnesses: map[string]policy.HarnessConfig{"codex": {ApprovalMode: "full", Sandbox: "permissive"}}}
	flags := CodexGenerator{}.LaunchFlags(pol, "codex")
	joined := strings.Join(flags, " ")
	if !strings.Contains(joined, "--approval-mode untrusted") {
		t.Errorf("flags = %v, missing mapped approval mode", flags)
	}
	if !strings.Contains(joined, "--sandbox danger-full-access") {
		t.Errorf("flags = %v, missing mapped sandbox", flags)
	}
	if !strings.Contains(joined, "--full-auto") {
		t.Errorf("flags = %v, missing --full-auto", flags)
	}
}
