// Package errors provides standardized error handling for the draft engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Draft lifecycle errors
	ErrCodeDraftNotFound     ErrorCode = "DRAFT_NOT_FOUND"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeSnapshotCorrupt   ErrorCode = "SNAPSHOT_CORRUPT"

	// Media reference errors
	ErrCodeReferenceUnavailable ErrorCode = "REFERENCE_UNAVAILABLE"

	// Hand-off mailbox errors
	ErrCodeMergeTargetMissing ErrorCode = "MERGE_TARGET_MISSING"
	ErrCodeMailboxUnavailable ErrorCode = "MAILBOX_UNAVAILABLE"

	// Infrastructure errors
	ErrCodeRedisConnectionFailed    ErrorCode = "REDIS_CONNECTION_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSummaryIndexFailed       ErrorCode = "SUMMARY_INDEX_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so call sites can use
// errors.Is against the package sentinels below.
func (e *StandardError) Is(target error) bool {
	var se *StandardError
	if errors.As(target, &se) {
		return se.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrDraftNotFound        = &StandardError{Code: ErrCodeDraftNotFound, Message: "draft not found"}
	ErrPersistenceFailed    = &StandardError{Code: ErrCodePersistenceFailed, Message: "draft persistence failed"}
	ErrReferenceUnavailable = &StandardError{Code: ErrCodeReferenceUnavailable, Message: "media reference unavailable"}
	ErrMergeTargetMissing   = &StandardError{Code: ErrCodeMergeTargetMissing, Message: "hand-off merge target missing"}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewDraftNotFoundError creates a non-retryable missing-draft error.
func NewDraftNotFoundError(draftID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftNotFound,
		Message:   "Draft not found in store",
		Details:   fmt.Sprintf("draftId: %s", draftID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable durable read/write error.
func NewPersistenceError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Draft store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %v", op, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSnapshotCorruptError creates a non-retryable decode error for a stored snapshot.
func NewSnapshotCorruptError(draftID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotCorrupt,
		Message:   "Stored draft snapshot could not be decoded",
		Details:   fmt.Sprintf("draftId: %s, error: %v", draftID, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewReferenceUnavailableError creates a per-path resolution error. Non-retryable
// from the session's point of view: the path is dropped for this load.
func NewReferenceUnavailableError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferenceUnavailable,
		Message:   "Signed URL could not be minted for storage path",
		Details:   fmt.Sprintf("path: %s, error: %v", path, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMergeTargetMissingError creates a retryable merge error: the mailbox
// payload stays put and the merge runs again on the next trigger.
func NewMergeTargetMissingError(draftID, areaID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMergeTargetMissing,
		Message:   "Hand-off target area not present in snapshot",
		Details:   fmt.Sprintf("draftId: %s, areaId: %s", draftID, areaID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMailboxUnavailableError creates a retryable mailbox storage error.
func NewMailboxUnavailableError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailboxUnavailable,
		Message:   "Hand-off mailbox operation failed",
		Details:   fmt.Sprintf("op: %s, error: %v", op, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRedisConnectionFailedError creates a retryable Redis connection error.
func NewRedisConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRedisConnectionFailed,
		Message:   "Redis connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSummaryIndexFailedError creates a retryable summary-index write error.
// Summary writes ride along with snapshot writes and degrade to a warning.
func NewSummaryIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSummaryIndexFailed,
		Message:   "Draft summary index update failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from any error in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryable reports whether the error carries a retryable code.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
