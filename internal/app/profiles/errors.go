package profiles

import (
	"errors"
	"net/http"
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "PROFILE_NOT_FOUND"
	CodeAlreadyExists = "PROFILE_ALREADY_EXISTS"
	CodeForbidden     = "FORBIDDEN"
	CodeStorage       = "STORAGE_ERROR"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	ae := (*Error)(nil)
	return errors.As(err, &ae) && ae.Code == code
}

func validationError(message string, details map[string]any) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

func notFoundError() *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: "No profile exists for the requested id.",
	}
}

func alreadyExistsError() *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeAlreadyExists,
		Message: "A profile already exists for this identity.",
	}
}

func forbiddenError(message string) *Error {
	return &Error{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// storageError hides the store's error shape behind a stable message.
func storageError() *Error {
	return &Error{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeStorage,
		Message: "profile storage is unavailable",
	}
}
