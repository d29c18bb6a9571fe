package inspection

import (
	"encoding/hex"
	"fmt"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/ir"
)

// MaxSymbolLen bounds inspector symbols.
const MaxSymbolLen = 32

// Symbol is a short identifier: 1 to 32 characters of [A-Za-z0-9_].
type Symbol string

// ParseSymbol validates s as a Symbol.
func ParseSymbol(s string) (Symbol, error) {
	if len(s) == 0 || len(s) > MaxSymbolLen {
		return "", fault.InvalidArgument("symbol %q: length must be 1..%d", s, MaxSymbolLen)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
		if !ok {
			return "", fault.InvalidArgument("symbol %q: invalid character %q", s, c)
		}
	}
	return Symbol(s), nil
}

// Stamp is an inspection attestation.
//
// Once created, a stamp only changes through revocation: InspectedAt and
// every other field stay as written.
type Stamp struct {
	StampID      uint64
	AssetID      string
	Inspector    Symbol
	Passed       bool
	Notes        string
	EvidenceHash []byte
	InspectedAt  uint64
	Revoked      bool
}

// Valid reports whether the stamp attests a pass that has not been revoked.
func (s Stamp) Valid() bool {
	return s.Passed && !s.Revoked
}

// Object returns the stored form of the stamp.
func (s Stamp) Object() ir.Object {
	return ir.Object{
		"stamp_id":      ir.Uint64(s.StampID),
		"asset_id":      ir.String(s.AssetID),
		"inspector":     ir.String(s.Inspector),
		"passed":        ir.Bool(s.Passed),
		"notes":         ir.String(s.Notes),
		"evidence_hash": ir.String(hex.EncodeToString(s.EvidenceHash)),
		"inspected_at":  ir.Uint64(s.InspectedAt),
		"revoked":       ir.Bool(s.Revoked),
	}
}

func stampFromObject(obj ir.Object) (Stamp, error) {
	var (
		s   Stamp
		err error
	)
	if s.StampID, err = obj.Unsigned("stamp_id"); err != nil {
		return Stamp{}, err
	}
	if s.AssetID, err = obj.Str("asset_id"); err != nil {
		return Stamp{}, err
	}
	inspector, err := obj.Str("inspector")
	if err != nil {
		return Stamp{}, err
	}
	s.Inspector = Symbol(inspector)
	if s.Passed, err = obj.Flag("passed"); err != nil {
		return Stamp{}, err
	}
	if s.Notes, err = obj.Str("notes"); err != nil {
		return Stamp{}, err
	}
	evidence, err := obj.Str("evidence_hash")
	if err != nil {
		return Stamp{}, err
	}
	if s.EvidenceHash, err = hex.DecodeString(evidence); err != nil {
		return Stamp{}, fmt.Errorf("field %q: %w", "evidence_hash", err)
	}
	if s.InspectedAt, err = obj.Unsigned("inspected_at"); err != nil {
		return Stamp{}, err
	}
	if s.Revoked, err = obj.Flag("revoked"); err != nil {
		return Stamp{}, err
	}
	return s, nil
}
