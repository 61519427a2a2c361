package service

import "errors"

var (
	// ErrNotFound indicates a requested entity is absent or not owned by
	// the caller
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken indicates an account with this email already exists
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials indicates a failed login attempt
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrKidLimit indicates the per-account kid profile cap was reached
	ErrKidLimit = errors.New("maximum number of kids reached")

	// ErrNoKids indicates a story generation request referenced no valid
	// kid profiles
	ErrNoKids = errors.New("one or more kid IDs not found")
)
