package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidID    = errors.New("invalid session id")
	ErrInvalidLimit = errors.New("invalid journal limit")
)
