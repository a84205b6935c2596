package registry

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes registry failures so the worker can decide
// between failing a request and leaving it pending for the sweeper.
type ErrorCategory string

const (
	ErrorTimeout          ErrorCategory = "timeout"
	ErrorBadData          ErrorCategory = "bad_data"
	ErrorAuthentication   ErrorCategory = "authentication"
	ErrorOutage           ErrorCategory = "outage"
	ErrorContractMismatch ErrorCategory = "contract_mismatch"
	ErrorNotFound         ErrorCategory = "not_found"
	ErrorRateLimited      ErrorCategory = "rate_limited"
	ErrorInternal         ErrorCategory = "internal"
)

// Error wraps a registry failure with its category.
type Error struct {
	Category   ErrorCategory
	ProjectID  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry [%s] project %q: %s: %v", e.Category, e.ProjectID, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry [%s] project %q: %s", e.Category, e.ProjectID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a categorized error. Timeouts, outages and rate limits are
// retryable.
func NewError(category ErrorCategory, projectID, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		ProjectID:  projectID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is a transient registry failure.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to internal.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

// ErrCircuitOpen is wrapped by outage errors returned without calling the
// registry.
var ErrCircuitOpen = errors.New("registry circuit open")
