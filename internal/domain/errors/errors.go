package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind classifies an error so callers can branch on it.
type Kind string

const (
	KindUnknown           Kind = ""
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicateKey      Kind = "DUPLICATE_KEY"
	KindInvalidFormat     Kind = "INVALID_FORMAT"
	KindMissingIdentifier Kind = "MISSING_IDENTIFIER"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindUnavailable       Kind = "UNAVAILABLE"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind        // Error classification
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message, details string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details == "" {
		return e.message
	}

	return e.message + ": " + e.details
}

// Is reports whether target is a BaseError with the same error code, so that
// copies made by WithDetails still match the predefined errors.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == t.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the error classification
func (e *BaseError) Kind() Kind {
	return e.kind
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	ErrNotFound = NewBaseError(
		KindNotFound,
		"ADDRESS_NOT_FOUND",
		"address not found",
		"",
	)

	ErrDuplicateKey = NewBaseError(
		KindDuplicateKey,
		"DUPLICATE_ZIP_CODE",
		"zip code already registered",
		"",
	)

	ErrInvalidFormat = NewBaseError(
		KindInvalidFormat,
		"INVALID_IMPORT_FORMAT",
		"import payload is not a JSON array of addresses",
		"",
	)

	ErrMissingIdentifier = NewBaseError(
		KindMissingIdentifier,
		"MISSING_IDENTIFIER",
		"address id is required",
		"",
	)

	ErrInvalidArgument = NewBaseError(
		KindInvalidArgument,
		"INVALID_ARGUMENT",
		"invalid argument",
		"",
	)

	ErrSnapshotNotFound = NewBaseError(
		KindNotFound,
		"SNAPSHOT_NOT_FOUND",
		"snapshot not found",
		"",
	)

	ErrUnavailable = NewBaseError(
		KindUnavailable,
		"STORAGE_UNAVAILABLE",
		"address storage unavailable",
		"",
	)
)

// StorageError represents a fault of the storage medium, implementing the AppError interface
type StorageError struct {
	err     error
	details string
}

// NewStorageError creates a storage-related error
func NewStorageError(err error, details string) AppError {
	return &StorageError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return errors.Wrap(e.err, "storage operation failed").Error()
}

// Unwrap exposes the underlying fault, e.g. context.Canceled.
func (e *StorageError) Unwrap() error {
	return e.err
}

// Is makes every storage error match ErrUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrUnavailable
}

// Kind returns the error classification
func (e *StorageError) Kind() Kind {
	return KindUnavailable
}

// ErrorCode returns the business error code
func (e *StorageError) ErrorCode() string {
	return ErrUnavailable.ErrorCode()
}

// Message returns the user-friendly error message
func (e *StorageError) Message() string {
	return ErrUnavailable.Message()
}

// Details returns detailed error information
func (e *StorageError) Details() string {
	return e.details
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind()
	}

	return KindUnknown
}

// IsAppError reports whether err carries a domain classification.
func IsAppError(err error) bool {
	return KindOf(err) != KindUnknown
}
