// Package checksum computes the content digests used for change detection
// and optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats sum as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromETag extracts the checksum from an If-Match value. Weak tags and
// bare checksums are accepted; "*" and "" mean no precondition.
func FromETag(header string) string {
	v := strings.TrimSpace(header)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}
