package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hasher computes the dedup identity of a decoded interchange.
type Hasher struct {
	algorithm string
}

func NewHasher(algorithm string) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// ComputeHash builds a deterministic digest from the named invoice fields.
// Missing fields contribute an empty value so field order alone defines
// the identity.
func (h *Hasher) ComputeHash(invoice map[string]interface{}, fields []string) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("no fields specified for hashing")
	}

	parts := make([]string, len(fields))
	for i, field := range fields {
		if val, ok := invoice[field]; ok {
			parts[i] = fmt.Sprintf("%v", val)
		}
	}

	return h.digest(strings.Join(parts, "|") + "|"), nil
}

func (h *Hasher) digest(input string) string {
	if h.algorithm == "sha256" {
		sum := sha256.Sum256([]byte(input))
		return hex.EncodeToString(sum[:])
	}
	// md5 for anything else, including unset.
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
