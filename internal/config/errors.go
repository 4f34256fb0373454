package config

import (
	"errors"
)

// Sentinel error kinds for configuration; match them with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
