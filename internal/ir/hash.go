package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for digests. The version suffix leaves room for
// migrating the algorithm later.
const (
	DomainEntry = "kvledger/entry/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || part0 || 0x00 || part1 ...).
// The null separators keep part boundaries unambiguous.
func hashWithDomain(domain string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte{0x00})
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EntryDigest binds a stored value to the key it was written under, so a
// value copied to another key or altered in place fails verification.
func EntryDigest(key, value []byte) string {
	return hashWithDomain(DomainEntry, key, value)
}
