package approval

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates a fresh short random approval id (spec.md §3: "a
// freshly generated short random token").
func GenerateID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("approval: failed to generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
