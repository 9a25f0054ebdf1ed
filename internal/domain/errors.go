package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrDependency   = errors.New("dependency failure")
)

// Invalid state reasons. All of them match ErrInvalidState.
var (
	ErrCyclicMove        = &InvalidStateError{Reason: "cyclic_move", Message: "cannot move a folder into itself or one of its descendants"}
	ErrSelfShare         = &InvalidStateError{Reason: "self_share", Message: "cannot share a file with yourself"}
	ErrUploadTerminal    = &InvalidStateError{Reason: "upload_terminal", Message: "upload session is already completed or aborted"}
	ErrFolderHasFileInfo = &InvalidStateError{Reason: "folder_has_file_info", Message: "a folder cannot carry file info"}
	ErrFileMissingInfo   = &InvalidStateError{Reason: "file_missing_info", Message: "a file requires file info with file_type and storage_path"}
	ErrNotAFolder        = &InvalidStateError{Reason: "not_a_folder", Message: "target is not a folder"}
	ErrQuotaExceeded     = &InvalidStateError{Reason: "quota_exceeded", Message: "storage quota exceeded"}
)

// ErrExpired is a resource that existed but is past its lifetime. It reads as
// not found to callers.
var ErrExpired = &NotFoundError{Reason: "expired", Message: "resource has expired"}

type (
	// NotFoundError carries a reason code (e.g. "parent_not_found", "share_expired")
	// while still matching ErrNotFound.
	NotFoundError struct {
		Message string
		Reason  string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// InvalidStateError is an operation that is well-formed but not allowed in
	// the current state of the resource.
	InvalidStateError struct {
		Reason  string
		Message string
	}

	// DependencyError wraps a failure of the blob store or the database.
	DependencyError struct {
		Op  string
		Err error
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *InvalidStateError) Error() string { return e.Message }
func (e *DependencyError) Error() string   { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *InvalidStateError) StatusCode() int { return http.StatusUnprocessableEntity }
func (e *DependencyError) StatusCode() int   { return http.StatusBadGateway }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
func (e *DependencyError) Is(target error) bool   { return target == ErrDependency }
func (e *DependencyError) Unwrap() error          { return e.Err }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // folder, file, share
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewNotFound builds a NotFoundError with a reason code.
func NewNotFound(reason, format string, args ...any) error {
	return &NotFoundError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// NewDependency wraps err as a DependencyError. nil stays nil.
func NewDependency(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}

// Error kinds exposed to callers and logs.
const (
	KindNotFound         = "not_found"
	KindDuplicateName    = "duplicate_name"
	KindValidation       = "validation"
	KindInvalidState     = "invalid_state"
	KindPermissionDenied = "permission_denied"
	KindUnauthorized     = "unauthorized"
	KindDependency       = "dependency_failure"
	KindInternal         = "internal"
)

// Kind returns the stable error kind for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindDuplicateName
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrForbidden):
		return KindPermissionDenied
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrDependency):
		return KindDependency
	default:
		return KindInternal
	}
}

// Reason returns the internal reason code of err, if it carries one.
func Reason(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	var is *InvalidStateError
	if errors.As(err, &is) {
		return is.Reason
	}
	return ""
}
