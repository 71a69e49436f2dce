// Package hasher hashes short secrets (trip start PINs) and verifies
// them without leaking timing information.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex SHA-256 of the input.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// VerifyConstantTime compares the hash of the candidate against the
// stored hex digest in constant time.
func VerifyConstantTime(candidate, storedHash string) bool {
	computed := Hash(candidate)
	if len(computed) != len(storedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
