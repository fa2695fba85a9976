// Package harness defines the seam between an effective policy and the
// harness-native enforcement artefacts a supervised coding assistant
// understands natively (spec.md §4.5). Generators are ancillary: the
// core's correctness never depends on their output, only on the
// Authorization Server remaining the source of truth for prompt-requiring
// decisions.
package harness

import (
	"fmt"
	"regexp"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// sessionIDPattern is the validation spec.md §4.5 requires before any
// session id is interpolated into a generated file or script.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateSessionID rejects any session id shape other than
// alphanumerics, underscore, and hyphen.
func ValidateSessionID(sessionID string) error {
	if !sessionIDPattern.MatchString(sessionID) {
		return fmt.Errorf("harness: invalid session id %q", sessionID)
	}
	return nil
}

// AuthzOptions carries the loopback authorization server's coordinates so
// a generator can wire a harness's native hook/plugin mechanism to
// /authorize (and, where supported, /notify).
type AuthzOptions struct {
	Port      int
	SessionID string
	Secret    string
}

// WrittenFile describes one artefact a generator produced, relative to the
// target directory, for logging/testing.
type WrittenFile struct {
	Path string
	Mode uint32
}

// Generator produces harness-native enforcement artefacts for one
// effective policy, plus any launch-flag additions the harness needs
// (spec.md §4.5). authz is nil when no authorization server is running
// for this session (ancillary-only operation).
type Generator interface {
	// Enforce writes enforcement artefacts under dir and returns their
	// paths (relative to dir) for diagnostics/tests.
	Enforce(pol policy.PolicyDocument, dir string, sessionID string, authz *AuthzOptions) ([]WrittenFile, error)
	// LaunchFlags returns extra command-line flags to append when
	// launching the harness process under pol.
	LaunchFlags(pol policy.PolicyDocument, harnessID string) []string
}

// GeneratedFileBanner is prefixed (in the target language's comment
// syntax) to every generated file (spec.md §4.5).
const GeneratedFileBanner = "generated; do not edit"
