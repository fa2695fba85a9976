// Package settings defines the settings-interface port the approval
// coordinator consults for the auto-accept toggle (spec.md §4.3, §5).
package settings

import "context"

// Store is assumed safe for concurrent reads and serial writes (spec.md
// §5); the core never starts a transaction spanning this and another
// store.
type Store interface {
	// AutoAccept returns the raw auto-accept setting for a session: "true",
	// "false", or "" when unset. Unset is treated the same as "true"
	// (spec.md §4.3: "If unset or \"true\", skip the prompt").
	AutoAccept(ctx context.Context, sessionID string) (string, error)
}
