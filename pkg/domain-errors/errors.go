// Package domainerrors defines the coded error type services return to callers.
//
// Stores report infrastructure facts through pkg/platform/sentinel; services
// translate those facts into a Code so transports and callers can branch on
// the reason without parsing messages:
//
//	if dErrors.HasCode(err, dErrors.CodeDuplicateProject) { ... }
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure reason.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Input validation.
	CodeInvalidAmount Code = "invalid_amount"
	CodeEmptyReason   Code = "empty_reason"

	// Lifecycle ordering: the operation was invoked out of sequence.
	CodeCreditNotVerified      Code = "credit_not_verified"
	CodeVerificationIncomplete Code = "verification_incomplete"
	CodeVerificationFailed     Code = "verification_failed"
	CodeDuplicateRequest       Code = "duplicate_request"
	CodeAlreadyFulfilled       Code = "already_fulfilled"
	CodeDuplicateProject       Code = "duplicate_project"
	CodeAlreadyExists          Code = "already_exists"

	// Capacity: an arithmetic bound would be violated.
	CodeExceedsVerifiedAmount     Code = "exceeds_verified_amount"
	CodeInsufficientHeadroom      Code = "insufficient_headroom"
	CodeCapacityExceeded          Code = "capacity_exceeded"
	CodeRetirementExceedsIssuance Code = "retirement_exceeds_issuance"
	CodeInsufficientBalance       Code = "insufficient_balance"

	CodeUnknownRequest Code = "unknown_request"
)

// Category groups codes by how a caller is expected to react.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryLifecycle     Category = "lifecycle"
	CategoryCapacity      Category = "capacity"
	CategoryAuthorization Category = "authorization"
	CategoryNotFound      Category = "not_found"
	CategoryInternal      Category = "internal"
)

var categories = map[Code]Category{
	CodeValidation:                CategoryValidation,
	CodeBadRequest:                CategoryValidation,
	CodeInvalidInput:              CategoryValidation,
	CodeInvalidAmount:             CategoryValidation,
	CodeEmptyReason:               CategoryValidation,
	CodeCreditNotVerified:         CategoryLifecycle,
	CodeVerificationIncomplete:    CategoryLifecycle,
	CodeVerificationFailed:        CategoryLifecycle,
	CodeDuplicateRequest:          CategoryLifecycle,
	CodeAlreadyFulfilled:          CategoryLifecycle,
	CodeDuplicateProject:          CategoryLifecycle,
	CodeAlreadyExists:             CategoryLifecycle,
	CodeConflict:                  CategoryLifecycle,
	CodeExceedsVerifiedAmount:     CategoryCapacity,
	CodeInsufficientHeadroom:      CategoryCapacity,
	CodeCapacityExceeded:          CategoryCapacity,
	CodeRetirementExceedsIssuance: CategoryCapacity,
	CodeInsufficientBalance:       CategoryCapacity,
	CodeUnauthorized:              CategoryAuthorization,
	CodeForbidden:                 CategoryAuthorization,
	CodeNotFound:                  CategoryNotFound,
	CodeUnknownRequest:            CategoryNotFound,
}

// Category returns the group a code belongs to. Unknown codes are internal.
func (c Code) Category() Category {
	if cat, ok := categories[c]; ok {
		return cat
	}
	return CategoryInternal
}

// Error carries a Code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// As extracts the outermost *Error from err.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost *Error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
