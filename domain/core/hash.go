package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash is a hex encoded SHA-256 digest
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex digits
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeStageListHash fingerprints an ordered stage list. Order matters
// because outlier removal is order dependent.
func ComputeStageListHash(stages []string) Hash {
	return NewHash([]byte(strings.Join(stages, "\x00")))
}
