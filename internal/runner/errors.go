package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrToolRoundLimit ends a turn whose model keeps requesting tools.
	// Every tool_use of the last round has been answered when it is returned.
	ErrToolRoundLimit = errors.New("runner: tool round limit reached")

	// ErrThrottleLimit is returned only when an explicit throttle retry cap
	// is configured and exhausted.
	ErrThrottleLimit = errors.New("runner: model still throttled after retry limit")
)

// ToolExecutionError reports a tool call that failed on every attempt.
// Err is the error from the final attempt.
type ToolExecutionError struct {
	Tool     string
	Attempts int
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed after %d attempt(s): %v", e.Tool, e.Attempts, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
