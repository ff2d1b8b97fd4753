package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an Error for callers that map outcomes to transport
// status codes.
type ErrorKind int

const (
	KindFailure ErrorKind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "failure"
	}
}

// Error is the outcome of a failed operation. Two errors are equal under
// errors.Is when their codes match.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUserNotFound = &Error{
		Kind:    KindNotFound,
		Code:    "User.NotFound",
		Message: "user not found",
	}
	ErrInvalidCredentials = &Error{
		Kind:    KindUnauthorized,
		Code:    "User.InvalidCredentials",
		Message: "The provided credentials are invalid",
	}
	ErrExpiredRefreshToken = &Error{
		Kind:    KindConflict,
		Code:    "User.ExpiredRefreshToken",
		Message: "Refresh Token is expired, please login again",
	}
	ErrUserExists = &Error{
		Kind:    KindConflict,
		Code:    "User.AlreadyExists",
		Message: "a user with this email already exists",
	}
	ErrPasswordMismatch = &Error{
		Kind:    KindValidation,
		Code:    "User.PasswordMismatch",
		Message: "password and confirmation do not match",
	}
	ErrInvalidRedirectURI = &Error{
		Kind:    KindValidation,
		Code:    "User.InvalidRedirectUri",
		Message: "client redirect uri must be an absolute url",
	}
	ErrInvalidRole = &Error{
		Kind:    KindValidation,
		Code:    "User.InvalidRole",
		Message: "unknown role",
	}
	ErrInvalidInput = &Error{
		Kind:    KindValidation,
		Code:    "User.InvalidInput",
		Message: "email and password are required",
	}
)

// UserNotFound reports a missing user, echoing the submitted email.
func UserNotFound(email string) error {
	return &Error{
		Kind:    KindNotFound,
		Code:    ErrUserNotFound.Code,
		Message: fmt.Sprintf("User with email %s is not found", email),
	}
}

// UserNotFoundByID reports a missing user looked up by id.
func UserNotFoundByID(id string) error {
	return &Error{
		Kind:    KindNotFound,
		Code:    ErrUserNotFound.Code,
		Message: fmt.Sprintf("User with id %s is not found", id),
	}
}

// Failure wraps an unexpected infrastructure error.
func Failure(code string, err error) error {
	return &Error{
		Kind:    KindFailure,
		Code:    code,
		Message: "unexpected failure",
		cause:   err,
	}
}

// KindOf returns the kind of err, or KindFailure when err is not an *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFailure
}

// Store-level sentinels. The service converts them; they never reach callers.
var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrConcurrentUpdate = errors.New("concurrent update")
)
