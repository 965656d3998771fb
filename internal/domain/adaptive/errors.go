package adaptive

import (
	"errors"
	"fmt"
)

// Sentinel kinds for adaptive-layer errors.
var (
	ErrUnknownCause = errors.New("cause not in known set")
)

// WrapKind annotates err with an operation and a sentinel kind so callers
// can match with errors.Is.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
