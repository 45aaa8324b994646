// Package fileid derives deterministic entry IDs for entries imported from files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
)

const prefix = "imp-"

// EntryID returns a stable ID for the n-th entry (zero-based) of the file at path.
// The same path and position always yield the same ID, so re-importing a file updates
// its entries in place.
func EntryID(path string, n int) string {
	key := filepath.Clean(path)
	if n > 0 {
		key += "#" + strconv.Itoa(n)
	}
	hash := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(hash[:12])
}
