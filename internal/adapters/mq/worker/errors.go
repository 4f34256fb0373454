package worker

import "errors"

// ErrShutdownTimeout is returned when workers do not drain before the deadline.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")
