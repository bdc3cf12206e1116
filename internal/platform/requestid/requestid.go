// Package requestid generates opaque per-request identifiers for logs
// and error responses.
package requestid

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a 32-character hex identifier.
func New() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
