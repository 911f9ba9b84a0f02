package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies lifecycle failures.
type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "InvalidArgument"
	CodeNotFound         ErrorCode = "NotFound"
	CodeInvalidState     ErrorCode = "InvalidState"
	CodeMalformedPayload ErrorCode = "MalformedPayload"
	CodeUnknownOperation ErrorCode = "UnknownOperation"
	// CodeCorruptRecord marks a stored value that exists but cannot be decoded.
	CodeCorruptRecord ErrorCode = "CorruptRecord"
)

// Error is a classified lifecycle error carrying a human-readable message.
type Error struct {
	Code    ErrorCode
	Message string
}

// NewError constructs a classified error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrInvalidState     = &Error{Code: CodeInvalidState}
	ErrMalformedPayload = &Error{Code: CodeMalformedPayload}
	ErrUnknownOperation = &Error{Code: CodeUnknownOperation}
	ErrCorruptRecord    = &Error{Code: CodeCorruptRecord}
)

// CodeOf extracts the classification of err, or "" when err is unclassified.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ProductNotFound reports a missing or empty ledger record.
func ProductNotFound(id string) *Error {
	return NewError(CodeNotFound, fmt.Sprintf("Product with id %s does not exist.", id))
}

// IncorrectArguments reports an argument count mismatch.
func IncorrectArguments(expecting string) *Error {
	return NewError(CodeInvalidArgument, "Incorrect arguments. Expecting "+expecting)
}
