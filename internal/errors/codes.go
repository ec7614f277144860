// Package errors provides structured error handling for the card advisor core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Catalog errors
	CodeUnknownBank Code = "UNKNOWN_BANK"
	CodeUnknownCard Code = "UNKNOWN_CARD"

	// Session errors
	CodeAgeNotSet     Code = "AGE_NOT_SET"
	CodeAgeIneligible Code = "AGE_INELIGIBLE"

	// Comparison errors
	CodeEmptySelection Code = "EMPTY_SELECTION"

	// Referral errors
	CodeMalformedReferralToken Code = "MALFORMED_REFERRAL_TOKEN"

	// Dialog errors
	CodeStateMismatch Code = "STATE_MISMATCH"
)

// Error is a domain error carrying a machine-readable code.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// New creates a coded error with a fixed message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Recoverable reports whether err is a user-facing domain error that should be
// rendered as a message in place of the expected menu. Anything without a
// code is treated as an internal failure.
func Recoverable(err error) bool {
	var coded *Error
	return stderrors.As(err, &coded)
}
