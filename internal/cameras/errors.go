package cameras

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("device not found")
	ErrConflict   = errors.New("camera already exists for this device and channel")
)

// PromoteError records which promotion step failed. It unwraps to the
// cause so callers can keep using errors.Is on the sentinels above.
type PromoteError struct {
	Step string
	Err  error
}

func (e *PromoteError) Error() string {
	return fmt.Sprintf("promote camera [%s]: %v", e.Step, e.Err)
}

func (e *PromoteError) Unwrap() error {
	return e.Err
}

func stepErr(step string, err error) error {
	return &PromoteError{Step: step, Err: err}
}
