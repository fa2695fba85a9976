// Package ui defines the UI feed: the side-channel of events the
// authorization server publishes alongside every decision, so a companion
// control surface can show live activity (spec.md §4.3/§4.4). The feed is
// best-effort and never gates a decision.
package ui

import "time"

// EventType names the kinds of messages published to the feed.
type EventType string

const (
	EventApprovalRequest  EventType = "approval-request"
	EventApprovalResolved EventType = "approval-resolved"
	EventPolicyFeed       EventType = "policy-feed"
	EventStatus           EventType = "status"
)

// Event is one message on a session's feed.
type Event struct {
	SessionID string                 `json:"sessionId"`
	Type      EventType              `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher fans an Event out to whatever is currently watching a
// session's feed. Publish never blocks the caller on a slow or absent
// subscriber.
type Publisher interface {
	Publish(evt Event)

	// Close tears down every subscriber watching sessionID's feed, e.g.
	// when the session unregisters.
	Close(sessionID string)
}
