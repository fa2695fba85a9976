// Package vaultenv implements vault.Resolver by reading the host process's
// own environment, for local/dev use where no external secret manager is
// configured (spec.md §1 names the vault itself out of scope; this is the
// no-vault-configured default rather than a production secret store).
package vaultenv

import (
	"context"
	"os"
)

// envPrefix is prepended to a requested key before the os.LookupEnv call,
// so a resolved secret can never be confused with an unrelated variable
// already present in the process environment.
const envPrefix = "LATCH_SECRET_"

// Resolver resolves each key against LATCH_SECRET_<KEY> in the process
// environment. Keys with no matching variable are simply omitted.
type Resolver struct{}

// New creates an env-backed resolver.
func New() Resolver {
	return Resolver{}
}

func (Resolver) Resolve(_ context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			out[key] = v
		}
	}
	return out, nil
}
