package harnessgen

import (
	"strings"

	"github.com/latchagent/latch-core/internal/domain/harness"
)

// ForHarness selects the generator for a given harness id (spec.md §4.5).
// Unrecognized ids, including "droid", fall back to launch-flag-only.
func ForHarness(harnessID string) harness.Generator {
	switch strings.ToLower(harnessID) {
	case "claude":
		return ClaudeGenerator{}
	case "codex":
		return CodexGenerator{}
	case "openclaw":
		return OpenClawGenerator{}
	default:
		return FallbackGenerator{}
	}
}
