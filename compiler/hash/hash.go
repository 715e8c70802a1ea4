package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chazu/tape/compiler"
)

// Version is mixed into every hash. Bump it when the canonical form changes
// so stale cache entries stop matching.
const Version byte = 1

// Fingerprint is the content hash of a program's command sequence.
type Fingerprint [32]byte

// String returns the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex digits, for logs.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// Tokens computes the SHA-256 fingerprint of a token sequence.
//
// The hash covers only the canonical command text, so two sources that differ
// only in comments or layout produce the same fingerprint.
func Tokens(tokens []compiler.Token) Fingerprint {
	data := make([]byte, 0, len(tokens)+1)
	data = append(data, Version)
	for _, t := range tokens {
		data = append(data, t.Type.Char())
	}
	return sha256.Sum256(data)
}

// Source lexes src and fingerprints its tokens.
func Source(src string) Fingerprint {
	return Tokens(compiler.Lex(src))
}

// Parse decodes a hex fingerprint.
func Parse(s string) (Fingerprint, error) {
	var f Fingerprint
	b, err := hex.DecodeString(s)
	if err != nil {
		return f, err
	}
	if len(b) != len(f) {
		return f, fmt.Errorf("hash: fingerprint has %d bytes, want %d", len(b), len(f))
	}
	copy(f[:], b)
	return f, nil
}
