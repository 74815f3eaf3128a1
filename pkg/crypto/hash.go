package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex computes the SHA256 hash of an input string and returns
// it hex-encoded. Used to log credential fingerprints instead of the
// credentials themselves.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, loggable prefix of the SHA256 hash.
func Fingerprint(input string) string {
	if input == "" {
		return ""
	}
	return Sha256Hex(input)[:8]
}
