package chain

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the length of a Digest in bytes.
const DigestSize = sha256.Size

// SeedPayload is hashed to root a fresh chain.
const SeedPayload = "Hello"

// Digest is the SHA-256 of a payload string.
type Digest [DigestSize]byte

// Seed is the digest of SeedPayload.
var Seed = Sum(SeedPayload)

// Sum computes the digest of payload.
func Sum(payload string) Digest {
	return Digest(sha256.Sum256([]byte(payload)))
}

// String renders the digest as lowercase hex without separators.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes the hex form produced by String.
func ParseDigest(s string) (d Digest, err error) {
	if len(s) != DigestSize*2 {
		return d, ErrInvalidDigest
	}
	if _, err = hex.Decode(d[:], []byte(s)); err != nil {
		return d, ErrInvalidDigest
	}
	return d, nil
}
