package service

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/latchagent/latch-core/internal/adapter/outbound/feed"
	"github.com/latchagent/latch-core/internal/adapter/outbound/memory"
	"github.com/latchagent/latch-core/internal/domain/approval"
	"github.com/latchagent/latch-core/internal/domain/policy"
	"github.com/latchagent/latch-core/internal/domain/session"
	"github.com/latchagent/latch-core/internal/domain/tool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testHarness struct {
	svc       *AuthzService
	sessions  *session.Registry
	policies  *memory.PolicyStore
	acts      *memory.ActivityStore
	settings  *memory.SettingsStore
	broadcast *feed.Broadcaster
}

func newTestHarness() *testHarness {
	sessions := session.NewRegistry()
	policies := memory.NewPolicyStore()
	acts := memory.NewActivityStore()
	settingsStore := memory.NewSettingsStore()
	broadcast := feed.NewBroadcaster()
	coord := approval.NewCoordinator()
	evaluator := &tool.Evaluator{}

	svc := NewAuthzService(sessions, policies, acts, settingsStore, nil, evaluator, coord, broadcast, testLogger())
	return &testHarness{svc: svc, sessions: sessions, policies: policies, acts: acts, settings: settingsStore, broadcast: broadcast}
}

func (h *testHarness) registerSession(t *testing.T, sessionID, harnessID string, doc policy.PolicyDocument) {
	t.Helper()
	doc.ID = sessionID + "-policy"
	if err := h.policies.Save(context.Background(), &doc); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := h.sessions.Register(sessionID, harnessID, doc.ID, nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
}

func (h *testHarness) events(t *testing.T) []string {
	t.Helper()
	events, err := h.acts.Range(context.Background(), time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Range() error: %v", err)
	}
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ToolName
	}
	return out
}

// Scenario 1: shell deny.
func TestAuthorize_ShellDeny(t *testing.T) {
	h := newTestHarness()
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: false, AllowFileWrite: true, AllowNetwork: true},
	})

	res := h.svc.Authorize(context.Background(), "s1", "Bash", map[string]interface{}{"command": "ls"})
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
	if res.Reason != "Policy disallows shell execution." {
		t.Fatalf("Reason = %q", res.Reason)
	}

	events, err := h.acts.Range(context.Background(), time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Range() error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].ActionClass != "execute" || events[0].Risk != "high" || string(events[0].Decision) != "deny" {
		t.Fatalf("event = %+v", events[0])
	}
}

// Scenario 2: default rule catches rm -rf /.
func TestAuthorize_DefaultCommandRuleDeniesRmRf(t *testing.T) {
	h := newTestHarness()
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: true},
	})

	res := h.svc.Authorize(context.Background(), "s1", "Bash", map[string]interface{}{"command": "rm -rf /"})
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
	if !strings.Contains(res.Reason, "Recursive delete of root paths") {
		t.Fatalf("Reason = %q", res.Reason)
	}
}

// Scenario 3: sudo prompts, auto-accept on.
func TestAuthorize_AutoAcceptOn(t *testing.T) {
	h := newTestHarness()
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: true, ConfirmDestructive: true},
	})
	h.settings.SetAutoAccept("s1", "true")

	res := h.svc.Authorize(context.Background(), "s1", "Bash", map[string]interface{}{"command": "sudo apt install vim"})
	if res.Decision != policy.DecisionAllow {
		t.Fatalf("Decision = %v, want allow", res.Decision)
	}
	if res.Reason != "Auto-accepted." {
		t.Fatalf("Reason = %q, want 'Auto-accepted.'", res.Reason)
	}
}

// Scenario 4: sudo prompts, auto-accept off, user denies.
func TestAuthorize_AutoAcceptOffUserDenies(t *testing.T) {
	h := newTestHarness()
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: true, ConfirmDestructive: true},
	})
	h.settings.SetAutoAccept("s1", "false")

	sub, cancel := h.broadcast.Subscribe("s1")
	defer cancel()

	done := make(chan AuthorizeResult, 1)
	go func() {
		done <- h.svc.Authorize(context.Background(), "s1", "Bash", map[string]interface{}{"command": "sudo apt install vim"})
	}()

	select {
	case evt := <-sub:
		if evt.Type != "approval-request" {
			t.Fatalf("first feed event type = %q, want approval-request", evt.Type)
		}
		approvalID, _ := evt.Payload["approvalId"].(string)
		if err := h.svc.ResolveApproval(approvalID, false); err != nil {
			t.Fatalf("ResolveApproval() error: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for approval-request feed event")
	}

	select {
	case res := <-done:
		if res.Decision != policy.DecisionDeny {
			t.Fatalf("Decision = %v, want deny", res.Decision)
		}
		if res.Reason != "User denied." {
			t.Fatalf("Reason = %q, want 'User denied.'", res.Reason)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for Authorize to return")
	}
}

// Scenario 6: blocked-glob write.
func TestAuthorize_BlockedGlobWrite(t *testing.T) {
	h := newTestHarness()
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions:  policy.Permissions{AllowFileWrite: true},
		BlockedGlobs: []string{"**/.env"},
	})

	res := h.svc.Authorize(context.Background(), "s1", "Write", map[string]interface{}{"file_path": "/home/u/project/.env"})
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
	if !strings.Contains(res.Reason, "'**/.env'") {
		t.Fatalf("Reason = %q", res.Reason)
	}

	res2 := h.svc.Authorize(context.Background(), "s1", "Write", map[string]interface{}{"file_path": "/home/u/project/readme.md"})
	if res2.Decision != policy.DecisionAllow {
		t.Fatalf("Decision = %v, want allow", res2.Decision)
	}
}

func TestAuthorize_UnknownSessionDeniesWithoutPolicyLookup(t *testing.T) {
	h := newTestHarness()
	res := h.svc.Authorize(context.Background(), "ghost", "Bash", map[string]interface{}{"command": "ls"})
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
	if res.Reason != "Unknown session — denied by default." {
		t.Fatalf("Reason = %q", res.Reason)
	}
	if len(h.events(t)) != 1 {
		t.Fatalf("expected exactly one ActivityEvent for an unknown session, got %v", h.events(t))
	}
}

func TestAuthorize_MissingPolicyDeniesByDefault(t *testing.T) {
	h := newTestHarness()
	if err := h.sessions.Register("s1", "claude", "does-not-exist", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	res := h.svc.Authorize(context.Background(), "s1", "Bash", map[string]interface{}{"command": "ls"})
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
	if res.Reason != "Policy not found — denied by default." {
		t.Fatalf("Reason = %q", res.Reason)
	}
}

func TestGenerateEnforcementArtifacts_NeverLooserThanBaseline(t *testing.T) {
	h := newTestHarness()
	// The session's own policy is maximally permissive...
	h.registerSession(t, "s1", "claude", policy.PolicyDocument{
		Permissions: policy.Permissions{AllowBash: true, AllowNetwork: true, AllowFileWrite: true, ConfirmDestructive: false},
	})
	// ...but another stored policy is maximally restrictive, so it
	// contributes to the strictest baseline every session is checked against.
	restrictive := policy.PolicyDocument{
		ID:          "locked-down",
		Permissions: policy.Permissions{AllowBash: false, AllowNetwork: false, AllowFileWrite: false, ConfirmDestructive: true},
	}
	if err := h.policies.Save(context.Background(), &restrictive); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	artifacts, err := h.svc.GenerateEnforcementArtifacts(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GenerateEnforcementArtifacts() error: %v", err)
	}
	if artifacts.Permissions.AllowBash {
		t.Fatal("enforcement artifacts should inherit the stricter allowBash=false from the baseline")
	}
	if !artifacts.Permissions.ConfirmDestructive {
		t.Fatal("enforcement artifacts should inherit confirmDestructive=true from the baseline (OR merge)")
	}
}
