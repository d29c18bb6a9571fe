package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/ir"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"INSP_01", true},
		{"a", true},
		{"abcdefghijklmnopqrstuvwxyz012345", true},
		{"abcdefghijklmnopqrstuvwxyz0123456", false},
		{"", false},
		{"dash-ed", false},
		{"caf\u00e9", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sym, err := ParseSymbol(tt.in)
			if !tt.valid {
				assert.ErrorIs(t, err, fault.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Symbol(tt.in), sym)
		})
	}
}

func TestStampObjectEncoding(t *testing.T) {
	s := Stamp{
		StampID:      18446744073709551615,
		AssetID:      "A",
		Inspector:    "I",
		Passed:       true,
		EvidenceHash: []byte{0x01, 0xff},
		InspectedAt:  5,
	}

	raw, err := ir.MarshalCanonical(s.Object())
	require.NoError(t, err)
	assert.Equal(t,
		`{"asset_id":"A","evidence_hash":"01ff","inspected_at":"5","inspector":"I","notes":"","passed":true,"revoked":false,"stamp_id":"18446744073709551615"}`,
		string(raw))

	back, err := stampFromObject(s.Object())
	require.NoError(t, err)
	assert.Equal(t, s.StampID, back.StampID)
	assert.Equal(t, s.EvidenceHash, back.EvidenceHash)
}

func TestStampFromObjectRejectsBadEvidence(t *testing.T) {
	obj := Stamp{StampID: 1, Inspector: "I"}.Object()
	obj["evidence_hash"] = ir.String("zz")

	_, err := stampFromObject(obj)
	assert.Error(t, err)
}

func TestStampValid(t *testing.T) {
	assert.True(t, Stamp{Passed: true}.Valid())
	assert.False(t, Stamp{Passed: true, Revoked: true}.Valid())
	assert.False(t, Stamp{Passed: false}.Valid())
}
