// Package fault defines the outcomes an operation can be refused with.
//
// Every fault aborts the invocation that raised it; the host transaction is
// rolled back so no partial write survives. Callers branch on Code, either
// through errors.Is against the sentinels or through CodeOf.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a fault.
type Code string

const (
	// CodeNotFound indicates a lookup by id found no record.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidState indicates an operation out of lifecycle order
	// (confirm twice, pay unconfirmed, pay twice).
	CodeInvalidState Code = "INVALID_STATE"

	// CodeUnauthorized indicates the caller is not the required principal.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeAlreadyExists indicates a strict create found the id taken.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeInvalidArgument indicates malformed input (bad symbol, bad number).
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeCorrupt indicates a stored entry failed digest or decode checks.
	CodeCorrupt Code = "CORRUPT"
)

// Sentinels for errors.Is. A *Fault matches the sentinel with the same Code
// regardless of message or key.
var (
	ErrNotFound        = &Fault{Code: CodeNotFound}
	ErrInvalidState    = &Fault{Code: CodeInvalidState}
	ErrUnauthorized    = &Fault{Code: CodeUnauthorized}
	ErrAlreadyExists   = &Fault{Code: CodeAlreadyExists}
	ErrInvalidArgument = &Fault{Code: CodeInvalidArgument}
	ErrCorrupt         = &Fault{Code: CodeCorrupt}
)

// Fault is a refusal raised by a registry or the store.
type Fault struct {
	// Code identifies the fault category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Key is the storage key involved, if any.
	Key string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	switch {
	case f.Message == "":
		return string(f.Code)
	case f.Key != "":
		return fmt.Sprintf("%s: %s (key=%s)", f.Code, f.Message, f.Key)
	default:
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
}

// Is reports whether target is a Fault with the same Code.
func (f *Fault) Is(target error) bool {
	var t *Fault
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == f.Code
}

// New creates a fault with a formatted message.
func New(code Code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithKey returns a copy of f carrying the storage key.
func (f *Fault) WithKey(key string) *Fault {
	c := *f
	c.Key = key
	return &c
}

// NotFound creates a NOT_FOUND fault.
func NotFound(format string, args ...any) *Fault {
	return New(CodeNotFound, format, args...)
}

// InvalidState creates an INVALID_STATE fault.
func InvalidState(format string, args ...any) *Fault {
	return New(CodeInvalidState, format, args...)
}

// Unauthorized creates an UNAUTHORIZED fault.
func Unauthorized(format string, args ...any) *Fault {
	return New(CodeUnauthorized, format, args...)
}

// AlreadyExists creates an ALREADY_EXISTS fault.
func AlreadyExists(format string, args ...any) *Fault {
	return New(CodeAlreadyExists, format, args...)
}

// InvalidArgument creates an INVALID_ARGUMENT fault.
func InvalidArgument(format string, args ...any) *Fault {
	return New(CodeInvalidArgument, format, args...)
}

// Corrupt creates a CORRUPT fault.
func Corrupt(format string, args ...any) *Fault {
	return New(CodeCorrupt, format, args...)
}

// CodeOf extracts the fault code from err. It returns "" when err is nil or
// carries no Fault (a store or transport failure).
func CodeOf(err error) Code {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// IsFault reports whether err carries a Fault.
func IsFault(err error) bool {
	return CodeOf(err) != ""
}
