package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateFileHash returns the SHA-256 digest of content as a hex
// string. The hash is stored on every record for identity and audit;
// it is not used to deduplicate uploads.
func CalculateFileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
