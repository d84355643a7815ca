package config

import "errors"

// Errors for configuration loading.
var (
	// ErrInvalidConfig is returned when the configuration file exists
	// but is not valid JSON.
	ErrInvalidConfig = errors.New("invalid configuration file")
)
