// Package ir provides the value representation and canonical encoding
// shared by every ledger entry and storage key.
//
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere; unsigned 64/128-bit numbers travel as decimal strings
//   - NO null; absent fields are simply absent
//   - All stored bytes come from MarshalCanonical (RFC 8785)
//   - All JSON keys use snake_case
package ir
