// Package activity contains the append-only ActivityEvent log domain model.
package activity

import "time"

// Decision mirrors policy.Decision's allow/deny values (an ActivityEvent is
// never recorded mid-prompt — see invariant I1 in spec.md §3).
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Event is a single terminal authorization decision. Never mutated once
// appended (I1, I2).
type Event struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
	ToolName   string    `json:"toolName"`
	ActionClass string   `json:"actionClass"`
	Risk       string    `json:"risk"`
	Decision   Decision  `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	HarnessID  string    `json:"harnessId"`
}
