package harnessgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
)

func TestOpenClawGenerator_Enforce_WritesConfigAndApprovals(t *testing.T) {
	dir := t.TempDir()
	pol := policy.PolicyDocument{Permissions: policy.Permissions{AllowBash: false, AllowFileWrite: true, AllowNetwork: true}}

	gen := OpenClawGenerator{}
	written, err := gen.Enforce(pol, dir, "s1", nil)
	if err != nil {
		t.Fatalf("Enforce() error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("len(written) = %d, want 2 (no authz options)", len(written))
	}

	if _, err := os.Stat(filepath.Join(dir, "openclaw.json")); err != nil {
		t.Errorf("openclaw.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".openclaw", "exec-approvals.json")); err != nil {
		t.Errorf("exec-approvals.json not written: %v", err)
	}
}

func TestOpenClawGenerator_Enforce_PluginUsesConfirmDestructiveTimeout(t *testing.T) {
	dir := t.TempDir()
	pol := policy.PolicyDocument{Permissions: policy.Permissions{ConfirmDestructive: true}}

	gen := OpenClawGenerator{}
	_, err := gen.Enforce(pol, dir, "s1", &harness.AuthzOptions{Port: 4100, SessionID: "s1", Secret: "sek"})
	if err != nil {
		t.Fatalf("Enforce() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".openclaw", "plugins", "latch-authz", "index.js"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "timeout: 120000") {
		t.Errorf("plugin should use the 120s timeout when confirmDestructive is on, got:\n%s", content)
	}
	if !strings.Contains(content, "before_tool_call") {
		t.Error("plugin missing before_tool_call handler registration")
	}
}
