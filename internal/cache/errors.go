package cache

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned by constructors given a non-positive
// capacity or byte budget. The instance returned alongside it is nil.
var ErrInvalidCapacity = errors.New("cache: capacity must be positive")

// CorruptStateError reports persisted state that failed invariant
// re-validation on load. Callers never receive a partially-initialized
// cache alongside it.
type CorruptStateError struct {
	Reason string
	Err    error // underlying decode error, if any
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache: corrupt state: %s: %v", e.Reason, e.Err)
	}
	return "cache: corrupt state: " + e.Reason
}

func (e *CorruptStateError) Unwrap() error { return e.Err }
