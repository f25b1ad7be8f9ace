package roleplay

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhase   = errors.New("action not allowed in current phase")
	ErrBusy           = errors.New("dialogue request already in flight")
	ErrClosed         = errors.New("roleplay session closed")
	ErrMissingSession = errors.New("backend did not issue a session id")
	ErrViewerNotFound = errors.New("viewer not found")
)

// RunawayAdvanceError is reported when consecutive automatic advances hit the
// ceiling. The sequencer stalls; it is not fatal.
type RunawayAdvanceError struct {
	Ceiling int
}

func (e *RunawayAdvanceError) Error() string {
	return fmt.Sprintf("%d consecutive automatic lines, auto-advance paused", e.Ceiling)
}
