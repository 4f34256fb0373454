package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrFormInvalid     = errors.New("form is invalid")
	ErrBackpressure    = errors.New("submission queue is full")
)
