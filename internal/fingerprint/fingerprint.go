// Package fingerprint computes content fingerprints for change detection.
// The digest is an equality check, not a security primitive.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
)

// Hash returns the hex digest of body. Identical input always yields an
// identical digest.
func Hash(body string) string {
	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Changed reports whether current differs from the last recorded hash.
// An absent last hash (first-ever check) always counts as changed.
func Changed(current, last string) bool {
	if last == "" {
		return true
	}
	return current != last
}
