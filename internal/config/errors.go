package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package, matchable via errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// NewKind builds an error from an operation, a sentinel kind and a detail.
func NewKind(op string, kind error, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, kind, detail)
}

// WrapKind labels err with the failing operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
