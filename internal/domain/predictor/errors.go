package predictor

import (
	"errors"
	"fmt"
)

// Sentinel kinds for predictor errors.
var (
	ErrInvalidInput = errors.New("invalid prediction input")
)

// WrapKind annotates err with an operation and a sentinel kind so callers
// can match with errors.Is.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
