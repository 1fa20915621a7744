package asset

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes operation failures. Every failed operation maps to
// exactly one code, and every failure aborts the whole operation with no
// state retained - there is no partial-success code.
type ErrorCode string

const (
	// CodeValidation marks bad input: zero address, empty or malformed
	// metadata pointer, zero amount. Rejected before any state is touched.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeAuthorization marks a caller that lacks the required role or is
	// not the owner of the asset being operated on.
	CodeAuthorization ErrorCode = "AUTHORIZATION"

	// CodeInsufficient marks a balance or allowance that is too low for
	// the requested movement.
	CodeInsufficient ErrorCode = "INSUFFICIENT_FUNDS"

	// CodeInvariant marks an operation against a nonexistent or already
	// unwound pair or collectible.
	CodeInvariant ErrorCode = "INVARIANT_VIOLATION"

	// CodePaused marks a paired operation refused while the target
	// component is paused. Administrative operations are not gated.
	CodePaused ErrorCode = "PAUSED"

	// CodeReentrancy marks a call into the engine while one of its own
	// operations is still executing.
	CodeReentrancy ErrorCode = "REENTRANCY"
)

// Error is the structured error returned by the engine and by the ledger and
// registry capabilities. Op names the entry point that rejected the call;
// Details carries diagnostic key/value pairs.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates an Error with the given code, op, and formatted message.
func NewError(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsAuthorization reports whether err is an authorization rejection.
func IsAuthorization(err error) bool { return CodeOf(err) == CodeAuthorization }

// IsInsufficient reports whether err is an insufficient-resource rejection.
func IsInsufficient(err error) bool { return CodeOf(err) == CodeInsufficient }

// IsInvariant reports whether err is an invariant-violation rejection.
func IsInvariant(err error) bool { return CodeOf(err) == CodeInvariant }

// IsPaused reports whether err is an operational-state rejection.
func IsPaused(err error) bool { return CodeOf(err) == CodePaused }

// IsReentrancy reports whether err is a reentrancy rejection.
func IsReentrancy(err error) bool { return CodeOf(err) == CodeReentrancy }
