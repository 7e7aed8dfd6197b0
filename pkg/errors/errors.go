// Package errors provides structured error handling for authkit.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a specific failure class.
type ErrorCode string

const (
	// Validation errors
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeUsernameTooShort ErrorCode = "USERNAME_TOO_SHORT"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeWeakPassword     ErrorCode = "WEAK_PASSWORD"

	// Uniqueness errors
	ErrCodeDuplicateUsername ErrorCode = "DUPLICATE_USERNAME"
	ErrCodeDuplicateEmail    ErrorCode = "DUPLICATE_EMAIL"

	// Authentication errors. Unknown username and wrong password share a
	// single code and message so callers cannot enumerate accounts.
	ErrCodeBadCredentials   ErrorCode = "BAD_CREDENTIALS"
	ErrCodeAccountDisabled  ErrorCode = "ACCOUNT_DISABLED"
	ErrCodeWrongOldPassword ErrorCode = "WRONG_OLD_PASSWORD"

	// Session errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"

	// Storage and system errors
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AuthError is a structured error carrying a code and a human-readable
// message safe to show to the end caller.
type AuthError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a detail to the error.
func (e *AuthError) WithDetail(key string, value interface{}) *AuthError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause attaches an underlying error.
func (e *AuthError) WithCause(cause error) *AuthError {
	e.Cause = cause
	return e
}

// New creates an AuthError with the given code and message.
func New(code ErrorCode, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// Newf creates an AuthError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AuthError {
	return &AuthError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Constructors for the common failure classes.

func NewInvalidInput(message string) *AuthError {
	return New(ErrCodeInvalidInput, message)
}

func NewUsernameTooShort(minLength int) *AuthError {
	return Newf(ErrCodeUsernameTooShort, "username must be at least %d characters", minLength)
}

func NewInvalidEmail() *AuthError {
	return New(ErrCodeInvalidEmail, "invalid email format")
}

// NewWeakPassword combines every violated password rule into one message
// so the caller can show them all at once.
func NewWeakPassword(violations []string) *AuthError {
	err := Newf(ErrCodeWeakPassword, "password does not meet requirements: %s", strings.Join(violations, "; "))
	return err.WithDetail("violations", violations)
}

func NewDuplicateUsername() *AuthError {
	return New(ErrCodeDuplicateUsername, "username already exists")
}

func NewDuplicateEmail() *AuthError {
	return New(ErrCodeDuplicateEmail, "email already in use")
}

func NewBadCredentials() *AuthError {
	return New(ErrCodeBadCredentials, "username or password incorrect")
}

func NewAccountDisabled() *AuthError {
	return New(ErrCodeAccountDisabled, "user account is disabled")
}

func NewWrongOldPassword() *AuthError {
	return New(ErrCodeWrongOldPassword, "current password is incorrect")
}

func NewSessionNotFound() *AuthError {
	return New(ErrCodeSessionNotFound, "session not found")
}

func NewSessionExpired() *AuthError {
	return New(ErrCodeSessionExpired, "session has expired")
}

func NewStorageUnavailable(cause error) *AuthError {
	return New(ErrCodeStorageUnavailable, "storage backend unavailable").WithCause(cause)
}

func NewInternal(cause error) *AuthError {
	return New(ErrCodeInternal, "an internal error occurred").WithCause(cause)
}

// CodeOf extracts the ErrorCode from an error chain, or "" when the
// error is not an AuthError.
func CodeOf(err error) ErrorCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// MessageOf returns the human-readable message for an error. Unexpected
// error types collapse to a generic message so internals never leak to
// the caller.
func MessageOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "an internal error occurred"
}

// IsDuplicate reports whether the error is either uniqueness violation.
func IsDuplicate(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeDuplicateUsername || code == ErrCodeDuplicateEmail
}
