// Package approval implements the pending-approval coordinator (spec.md
// §4.3): it parks an in-flight authorize request until the user resolves
// it, a timer fires, the owning session unregisters, or the server stops.
package approval

import (
	"time"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// DefaultTimeout is APPROVAL_TIMEOUT_MS from spec.md §4.3.
const DefaultTimeout = 120 * time.Second

// PendingApproval is a tool call blocked pending human confirmation
// (spec.md §3).
type PendingApproval struct {
	ID             string
	SessionID      string
	ToolName       string
	ToolInput      map[string]interface{}
	ActionClass    string
	Risk           string
	HarnessID      string
	CreatedAt      time.Time
	TimeoutMs      int64
	TimeoutDefault policy.Decision // applied when the timer fires: allow or deny
}

// Resolution is the outcome delivered to whoever is parked on an approval.
type Resolution struct {
	Decision policy.Decision // DecisionAllow or DecisionDeny
	Reason   string
}
