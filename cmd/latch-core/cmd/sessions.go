package cmd

import (
	"encoding/json"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// decodePolicyOverride turns a sessionstore.Entry's stored override JSON
// back into a *policy.PolicyDocument, or nil if none was stored.
func decodePolicyOverride(raw json.RawMessage) (*policy.PolicyDocument, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc policy.PolicyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
