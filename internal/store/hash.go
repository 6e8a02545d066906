package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// PathHash is the stable primary key for per-file patterns. Hashing keeps
// the key length bounded regardless of how deep the path is.
func PathHash(filePath string) string {
	sum := sha256.Sum256([]byte(filePath))
	return hex.EncodeToString(sum[:8])
}
