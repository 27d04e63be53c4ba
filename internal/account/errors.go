package account

import (
	"fmt"
	"net/http"
)

// ErrorCode is the stable code carried by every business fault.
type ErrorCode string

const (
	// Validation faults
	CodePasswordMismatch ErrorCode = "PasswordMismatch"
	CodeEmptyPassword    ErrorCode = "EmptyPassword"
	CodePasswordTooShort ErrorCode = "PasswordTooShort"

	// State-conflict faults
	CodeDuplicateEmail       ErrorCode = "DuplicateEmail"
	CodeUserNotFound         ErrorCode = "UserNotFound"
	CodeTokenAccountMismatch ErrorCode = "TokenAccountMismatch"

	// Verification faults
	CodeNoVerificationRequested ErrorCode = "NoVerificationRequested"
	CodeInvalidVerificationCode ErrorCode = "InvalidVerificationCode"
	CodeInvalidPassword         ErrorCode = "InvalidPassword"

	// I/O faults
	CodeImageSaveFailed         ErrorCode = "ImageSaveFailed"
	CodeDirectoryDeletionFailed ErrorCode = "DirectoryDeletionFailed"
)

// Error is a typed, non-retryable business fault.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying collaborator error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors by code so sentinel comparisons work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of the fault carrying the underlying error.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, cause: cause}
}

var (
	ErrPasswordMismatch        = &Error{Code: CodePasswordMismatch, Message: "password and confirmation do not match", Status: http.StatusBadRequest}
	ErrEmptyPassword           = &Error{Code: CodeEmptyPassword, Message: "password must not be empty", Status: http.StatusBadRequest}
	ErrPasswordTooShort        = &Error{Code: CodePasswordTooShort, Message: "password must be at least 8 characters", Status: http.StatusBadRequest}
	ErrDuplicateEmail          = &Error{Code: CodeDuplicateEmail, Message: "email is already registered", Status: http.StatusConflict}
	ErrUserNotFound            = &Error{Code: CodeUserNotFound, Message: "user does not exist", Status: http.StatusNotFound}
	ErrTokenAccountMismatch    = &Error{Code: CodeTokenAccountMismatch, Message: "token does not match requested account", Status: http.StatusForbidden}
	ErrNoVerificationRequested = &Error{Code: CodeNoVerificationRequested, Message: "no verification code was requested for this email", Status: http.StatusBadRequest}
	ErrInvalidVerificationCode = &Error{Code: CodeInvalidVerificationCode, Message: "verification code does not match", Status: http.StatusBadRequest}
	ErrInvalidPassword         = &Error{Code: CodeInvalidPassword, Message: "password is incorrect", Status: http.StatusUnauthorized}
	ErrImageSaveFailed         = &Error{Code: CodeImageSaveFailed, Message: "could not save profile image", Status: http.StatusInternalServerError}
	ErrDirectoryDeletionFailed = &Error{Code: CodeDirectoryDeletionFailed, Message: "could not delete profile image directory", Status: http.StatusInternalServerError}
)
