package stream

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/enigmatic-code/minizinc/mzn"
)

// SolutionHash computes sha256 over the literal form of every assignment,
// in order. Solutions with equal variables, order and values hash equal.
func SolutionHash(sol *mzn.Solution) [32]byte {
	h := sha256.New()
	for name, v := range sol.All() {
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(v.String()))
		h.Write([]byte{';'})
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
