package host

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kvledger/internal/fault"
)

// ParsePrincipal validates an identity argument named field. The identity must
// be non-empty and valid UTF-8; it is returned in NFC form so that composed
// and decomposed spellings name the same principal.
func ParsePrincipal(field, s string) (Principal, error) {
	if s == "" {
		return Anonymous, fault.InvalidArgument("%s must not be empty", field)
	}
	if !utf8.ValidString(s) {
		return Anonymous, fault.InvalidArgument("%s is not valid UTF-8: %q", field, s)
	}
	return Principal(norm.NFC.String(s)), nil
}

// Normalize returns p in NFC form. Bytes that are not valid UTF-8 are kept
// as they are, so such a principal never equals a stored one.
func (p Principal) Normalize() Principal {
	if !utf8.ValidString(string(p)) {
		return p
	}
	return Principal(norm.NFC.String(string(p)))
}
