package repository

import "errors"

// Sentinel kinds for event store errors.
var (
	ErrInvalidWindow = errors.New("invalid event window")
	ErrInvalidEvent  = errors.New("invalid event")
)
