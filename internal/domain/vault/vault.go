// Package vault defines the secret-resolution port used by the
// /secrets/resolve route. The vault itself is an external collaborator
// (spec.md §1 Out of scope) — this package only names the interface the
// authorization server depends on.
package vault

import "context"

// Resolver resolves opaque secret keys to their values. Implementations
// are injected at wiring time; this module ships vaultenv (the process
// environment) and vaulthttp (an external vault's HTTP endpoint).
type Resolver interface {
	// Resolve looks up each of keys and returns whatever subset it found.
	// A missing key is simply absent from the result, not an error: the
	// wrapper launcher decides how to treat gaps.
	Resolve(ctx context.Context, keys []string) (map[string]string, error)
}
