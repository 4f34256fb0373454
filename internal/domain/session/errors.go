package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrStaleToken = errors.New("submit token is not the current form")
	ErrInvalid    = errors.New("form is invalid")
)
