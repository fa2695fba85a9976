package harnessgen

import (
	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
)

// FallbackGenerator implements harness.Generator for Droid and any
// unrecognized harness: no config files, launch-flag only (spec.md §4.5).
type FallbackGenerator struct{}

var _ harness.Generator = FallbackGenerator{}

func (FallbackGenerator) Enforce(pol policy.PolicyDocument, dir string, sessionID string, authz *harness.AuthzOptions) ([]harness.WrittenFile, error) {
	if err := harness.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (FallbackGenerator) LaunchFlags(pol policy.PolicyDocument, harnessID string) []string {
	return []string{"--auto", "high", "--skip-permissions-unsafe"}
}
