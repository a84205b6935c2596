// Package sentinel holds the infrastructure facts stores report.
//
// Stores return these (optionally wrapped); services translate them into
// pkg/domain-errors codes. Input validation belongs in pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound means the row or map entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed means a one-shot resource was already consumed,
	// such as a verification request that has been fulfilled.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState means the entity is in the wrong state for the write.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable means a backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
