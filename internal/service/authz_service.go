// Package service wires the domain packages together into the two named
// operations an authorization decision needs (GeneratePolicy,
// GenerateEnforcementArtifacts) plus the request handlers the HTTP
// adapter and harness config generator call into.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/latchagent/latch-core/internal/domain/activity"
	"github.com/latchagent/latch-core/internal/domain/approval"
	"github.com/latchagent/latch-core/internal/domain/policy"
	"github.com/latchagent/latch-core/internal/domain/session"
	"github.com/latchagent/latch-core/internal/domain/settings"
	"github.com/latchagent/latch-core/internal/domain/tool"
	"github.com/latchagent/latch-core/internal/domain/ui"
	"github.com/latchagent/latch-core/internal/domain/vault"
)

// AuthorizeResult is the outcome of a /authorize request: final decision
// plus the reason recorded on the ActivityEvent.
type AuthorizeResult struct {
	Decision policy.Decision
	Reason   string
}

// AuthzService is the application service behind the authorization
// server: it ties the session registry, policy resolver, tool evaluator,
// approval coordinator, and the three stores together.
type AuthzService struct {
	Sessions     *session.Registry
	Policies     policy.Store
	Activity     activity.Store
	Settings     settings.Store
	Vault        vault.Resolver
	Evaluator    *tool.Evaluator
	Coordinator  *approval.Coordinator
	UIFeed       ui.Publisher
	Logger       *slog.Logger
}

// NewAuthzService wires the approval coordinator's resolution hook to
// activity recording and UI publishing, and the session registry's
// unregister hook to approval cancellation, then returns the service.
func NewAuthzService(
	sessions *session.Registry,
	policies policy.Store,
	activityStore activity.Store,
	settingsStore settings.Store,
	vaultResolver vault.Resolver,
	evaluator *tool.Evaluator,
	coordinator *approval.Coordinator,
	feed ui.Publisher,
	logger *slog.Logger,
) *AuthzService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthzService{
		Sessions:    sessions,
		Policies:    policies,
		Activity:    activityStore,
		Settings:    settingsStore,
		Vault:       vaultResolver,
		Evaluator:   evaluator,
		Coordinator: coordinator,
		UIFeed:      feed,
		Logger:      logger,
	}

	coordinator.SetOnResolve(func(p approval.PendingApproval, res approval.Resolution) {
		s.recordApprovalResolution(p, res)
	})
	sessions.OnUnregister(func(sessionID string) {
		coordinator.CancelSession(sessionID)
		feed.Close(sessionID)
	})

	return s
}

// GeneratePolicy resolves the effective policy for a session by direct
// store fetch (SPEC_FULL.md §9 decision 1): used for every live
// authorization decision, satisfying I5 (no further store reads inside
// the evaluator — this is the one read that happens first).
func (s *AuthzService) GeneratePolicy(ctx context.Context, sessionID string) (policy.PolicyDocument, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	base, err := s.Policies.Get(ctx, sess.PolicyID)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	return policy.ResolvePolicy(*base, sess.PolicyOverride), nil
}

// GenerateEnforcementArtifacts resolves the policy the harness config
// generator should bake into static files at session start
// (SPEC_FULL.md §9 decision 1): baseline-first, so static enforcement is
// never looser than the strictest-baseline would allow even if the
// session's assigned policy is unusually permissive.
func (s *AuthzService) GenerateEnforcementArtifacts(ctx context.Context, sessionID string) (policy.PolicyDocument, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	effective, err := s.GeneratePolicy(ctx, sessionID)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	all, err := s.Policies.List(ctx)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	baseline := policy.ComputeStrictestBaseline(all, sess.HarnessID)
	strictest := policy.ComputeStrictestBaseline([]policy.PolicyDocument{effective, baseline}, sess.HarnessID)
	strictest.ID = effective.ID
	strictest.Name = effective.Name
	strictest.Description = effective.Description
	return strictest, nil
}

// Authorize implements the /authorize dispatch (spec.md §4.2/§4.3): it
// classifies and evaluates the call, short-circuits on deny, auto-accepts
// or parks on a required confirmation, and always appends exactly one
// ActivityEvent (I1).
func (s *AuthzService) Authorize(ctx context.Context, sessionID, toolName string, toolInput map[string]interface{}) AuthorizeResult {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return s.denyWithoutPolicy(ctx, sessionID, "", toolName, toolInput, "Unknown session — denied by default.")
	}

	pol, err := s.GeneratePolicy(ctx, sessionID)
	if err != nil {
		return s.denyWithoutPolicy(ctx, sessionID, sess.HarnessID, toolName, toolInput, "Policy not found — denied by default.")
	}

	class := tool.Classify(toolName)
	risk := tool.RiskForClass(class)
	call := tool.Call{ToolName: toolName, ToolInput: toolInput, HarnessID: sess.HarnessID}
	verdict := s.Evaluator.Evaluate(call, pol)

	if verdict.Decision == policy.DecisionDeny {
		s.record(ctx, sessionID, sess.HarnessID, toolName, class, risk, activity.DecisionDeny, verdict.Reason)
		return AuthorizeResult{Decision: policy.DecisionDeny, Reason: verdict.Reason}
	}

	needsConfirm := verdict.NeedsPrompt
	if !needsConfirm && pol.Permissions.ConfirmDestructive {
		needsConfirm = class == tool.ActionExecute || class == tool.ActionWrite
	}

	if !needsConfirm {
		s.record(ctx, sessionID, sess.HarnessID, toolName, class, risk, activity.DecisionAllow, verdict.Reason)
		return AuthorizeResult{Decision: policy.DecisionAllow, Reason: verdict.Reason}
	}

	autoAccept, _ := s.Settings.AutoAccept(ctx, sessionID)
	if autoAccept == "" || autoAccept == "true" {
		s.record(ctx, sessionID, sess.HarnessID, toolName, class, risk, activity.DecisionAllow, "Auto-accepted.")
		return AuthorizeResult{Decision: policy.DecisionAllow, Reason: "Auto-accepted."}
	}

	timeoutDefault := policy.DecisionAllow
	if risk == tool.RiskHigh {
		timeoutDefault = policy.DecisionDeny
	}
	id, err := approval.GenerateID()
	if err != nil {
		s.record(ctx, sessionID, sess.HarnessID, toolName, class, risk, activity.DecisionDeny, "Failed to allocate an approval id.")
		return AuthorizeResult{Decision: policy.DecisionDeny, Reason: "Failed to allocate an approval id."}
	}

	pending := approval.PendingApproval{
		ID:             id,
		SessionID:      sessionID,
		ToolName:       toolName,
		ToolInput:      toolInput,
		ActionClass:    string(class),
		Risk:           string(risk),
		HarnessID:      sess.HarnessID,
		TimeoutMs:      int64(approval.DefaultTimeout / time.Millisecond),
		TimeoutDefault: timeoutDefault,
	}

	s.UIFeed.Publish(ui.Event{
		SessionID: sessionID,
		Type:      ui.EventApprovalRequest,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"approvalId": id,
			"toolName":   toolName,
			"riskLevel":  string(risk),
		},
	})

	// The coordinator's resolution hook (wired in NewAuthzService) appends
	// the ActivityEvent and publishes approval-resolved for every
	// resolution path, so Park's return here only needs to produce this
	// call's response — recording again would double-count I1.
	res := s.Coordinator.Park(ctx, pending)
	return AuthorizeResult{Decision: res.Decision, Reason: res.Reason}
}

// ResolveApproval implements the in-process resolveApproval(id,
// "approve"|"deny") interface (spec.md §6).
func (s *AuthzService) ResolveApproval(approvalID string, approve bool) error {
	decision := policy.DecisionDeny
	reason := "User denied."
	if approve {
		decision = policy.DecisionAllow
		reason = "User approved."
	}
	return s.Coordinator.Resolve(approvalID, decision, reason)
}

// Notify records a turn-complete observation as a synthetic ActivityEvent
// (spec.md §4.4).
func (s *AuthzService) Notify(ctx context.Context, sessionID, notifyType string) error {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return s.Activity.Append(ctx, activity.Event{
		SessionID:   sessionID,
		Timestamp:   time.Now(),
		ToolName:    fmt.Sprintf("_codex:%s", notifyType),
		ActionClass: string(tool.ActionExecute),
		Risk:        string(tool.RiskLow),
		Decision:    activity.DecisionAllow,
		HarnessID:   sess.HarnessID,
	})
}

// Feed appends an agent status update to the UI feed channel (spec.md
// §4.4). message must be non-empty.
func (s *AuthzService) Feed(sessionID, message string) error {
	if message == "" {
		return fmt.Errorf("service: feed message must not be empty")
	}
	s.UIFeed.Publish(ui.Event{
		SessionID: sessionID,
		Type:      ui.EventStatus,
		Timestamp: time.Now(),
		Payload:   map[string]interface{}{"message": message},
	})
	return nil
}

// ResolveSecrets implements /secrets/resolve by delegating to the vault
// port (spec.md §4.6).
func (s *AuthzService) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if s.Vault == nil {
		return nil, fmt.Errorf("service: no vault configured")
	}
	return s.Vault.Resolve(ctx, keys)
}

func (s *AuthzService) denyWithoutPolicy(ctx context.Context, sessionID, harnessID, toolName string, toolInput map[string]interface{}, reason string) AuthorizeResult {
	class := tool.Classify(toolName)
	risk := tool.RiskForClass(class)
	s.record(ctx, sessionID, harnessID, toolName, class, risk, activity.DecisionDeny, reason)
	s.UIFeed.Publish(ui.Event{
		SessionID: sessionID,
		Type:      ui.EventPolicyFeed,
		Timestamp: time.Now(),
		Payload:   map[string]interface{}{"reason": reason},
	})
	return AuthorizeResult{Decision: policy.DecisionDeny, Reason: reason}
}

func (s *AuthzService) record(ctx context.Context, sessionID, harnessID, toolName string, class tool.ActionClass, risk tool.Risk, decision activity.Decision, reason string) {
	if err := s.Activity.Append(ctx, activity.Event{
		SessionID:   sessionID,
		Timestamp:   time.Now(),
		ToolName:    toolName,
		ActionClass: string(class),
		Risk:        string(risk),
		Decision:    decision,
		Reason:      reason,
		HarnessID:   harnessID,
	}); err != nil {
		s.Logger.Error("failed to append activity event", "session_id", sessionID, "tool_name", toolName, "error", err)
	}
}

func (s *AuthzService) recordApprovalResolution(p approval.PendingApproval, res approval.Resolution) {
	decision := activity.DecisionDeny
	if res.Decision == policy.DecisionAllow {
		decision = activity.DecisionAllow
	}
	s.record(context.Background(), p.SessionID, p.HarnessID, p.ToolName, tool.ActionClass(p.ActionClass), tool.Risk(p.Risk), decision, res.Reason)
	s.UIFeed.Publish(ui.Event{
		SessionID: p.SessionID,
		Type:      ui.EventApprovalResolved,
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"approvalId": p.ID,
			"decision":   string(res.Decision),
			"reason":     res.Reason,
		},
	})
}
