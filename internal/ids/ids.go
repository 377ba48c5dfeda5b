// Package ids generates short random identifiers for engine-owned rows.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// New creates a unique ID in prefix-xxxxxxxx format (8-char hex).
func New(prefix string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ids: generate: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(b), nil
}
