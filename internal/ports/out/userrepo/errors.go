package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists indicates a user already exists with the provided ID.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrEmailTaken indicates another user already uses the email address (case-insensitive).
	ErrEmailTaken = errors.New("user email already in use")
)
