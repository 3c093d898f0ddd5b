package assist

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// normalize lowercases content and collapses all interior whitespace to
// single spaces, so trivially reformatted inputs share a fingerprint.
func normalize(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

// Fingerprint derives the deterministic cache/coalescing key for one
// (kind, content) pair: the hex SHA-256 of the kind and the normalized
// content separated by a newline.
func Fingerprint(kind Kind, content string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalize(content)))
	return hex.EncodeToString(h.Sum(nil))
}
