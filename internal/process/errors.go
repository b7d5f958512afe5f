package process

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the context deadline expires before the process exits.
var ErrTimeout = errors.New("process timed out")

// StartError is returned when the operating system refuses to start the process.
type StartError struct {
	// Command is the executable that failed to start.
	Command string
	// Err is the underlying start failure.
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
