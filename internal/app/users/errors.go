package users

import "net/http"

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAlreadyExists = "USER_ALREADY_EXISTS"
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

func validationError(message string, details map[string]any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidation, Message: message, Details: details}
}

func storageError() *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: CodeStorage, Message: "user storage is unavailable"}
}
