// Package session implements the process-local (non-persisted) registry of
// sessions bound to a harness and a policy (spec.md §3 RegisteredSession).
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// IDPattern is the shape every sessionId must match so it is safe to embed
// in URL paths, shell-hook scripts, and TOML/JSON (spec.md §3).
var IDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrInvalidID is returned when a caller-supplied sessionId fails IDPattern.
var ErrInvalidID = errors.New("session: id must match [A-Za-z0-9_-]+")

// ErrUnknownSession is returned by Get for a sessionId with no registration.
var ErrUnknownSession = errors.New("session: unknown session")

// RegisteredSession binds a session to a harness, a policy, and an optional
// per-session override (spec.md §3).
type RegisteredSession struct {
	SessionID      string
	HarnessID      string
	PolicyID       string
	PolicyOverride *policy.PolicyDocument
}

// Registry is the in-process session table. It is not persisted — sessions
// live only as long as the server process (spec.md §3 Lifecycle).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]RegisteredSession

	// onUnregister, when set, is called with the sessionId before its entry
	// is removed, so callers (the approval coordinator) can cancel in-flight
	// approvals for that session (spec.md §5 Cancellation).
	onUnregister func(sessionID string)
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]RegisteredSession)}
}

// OnUnregister installs the callback invoked synchronously inside
// Unregister, before the session entry is deleted.
func (r *Registry) OnUnregister(fn func(sessionID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUnregister = fn
}

// Register idempotently upserts a session registration.
func (r *Registry) Register(sessionID, harnessID, policyID string, override *policy.PolicyDocument) error {
	if !IDPattern.MatchString(sessionID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, sessionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = RegisteredSession{
		SessionID:      sessionID,
		HarnessID:      harnessID,
		PolicyID:       policyID,
		PolicyOverride: override,
	}
	return nil
}

// Unregister tears down a session. Per spec.md §3 Lifecycle, every
// PendingApproval belonging to the session must be resolved with deny; this
// is the caller's (approval coordinator's) responsibility, invoked via the
// onUnregister callback before the entry disappears.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onUnregister != nil {
		r.onUnregister(sessionID)
	}
	delete(r.sessions, sessionID)
}

// Get returns a session's registration, or ErrUnknownSession (I3: an
// /authorize for an unknown sessionId denies without consulting any
// policy — callers must check this before any store read).
func (r *Registry) Get(sessionID string) (RegisteredSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return RegisteredSession{}, ErrUnknownSession
	}
	return s, nil
}

// GenerateID creates a cryptographically random session ID for callers that
// don't supply their own (e.g. the harness config generator registering a
// fresh session at session-start time).
func GenerateID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
