package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryDigestDeterminism(t *testing.T) {
	d1 := EntryDigest([]byte(`["PINSPCT","stamp","1"]`), []byte(`{"a":1}`))
	d2 := EntryDigest([]byte(`["PINSPCT","stamp","1"]`), []byte(`{"a":1}`))
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestEntryDigestBindsKey(t *testing.T) {
	value := []byte(`{"a":1}`)
	assert.NotEqual(t,
		EntryDigest([]byte("k1"), value),
		EntryDigest([]byte("k2"), value),
	)
}

func TestEntryDigestSeparatorPreventsBoundaryShift(t *testing.T) {
	// Without separators "ab"+"c" and "a"+"bc" would hash identically.
	assert.NotEqual(t,
		EntryDigest([]byte("ab"), []byte("c")),
		EntryDigest([]byte("a"), []byte("bc")),
	)
}

func TestHashWithDomainSeparation(t *testing.T) {
	assert.NotEqual(t,
		hashWithDomain("kvledger/entry/v1", []byte("x")),
		hashWithDomain("kvledger/other/v1", []byte("x")),
	)
}
