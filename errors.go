package agentrun

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Sentinel errors for agentrun. Use errors.Is to check.
var (
	ErrRunFailed      = errors.New("run failed")
	ErrNilHandler     = errors.New("function handler must not be nil")
	ErrMalformedInput = errors.New("malformed tool call arguments")
)

// RunFailedError is returned when a run reaches a failure state (failed,
// cancelled, expired or incomplete). Message is the remote-provided reason.
type RunFailedError struct {
	ThreadID string
	RunID    string
	Status   openai.RunStatus
	Code     string
	Message  string
}

// Error returns the remote message verbatim; without one it names the status.
func (e *RunFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("run %s finished with status %s", e.RunID, e.Status)
}

// Is matches ErrRunFailed.
func (e *RunFailedError) Is(target error) bool { return target == ErrRunFailed }

// IsRunFailed returns true if err is or wraps a RunFailedError.
func IsRunFailed(err error) bool {
	var rf *RunFailedError
	return errors.As(err, &rf)
}

// ToolCallError wraps an error raised while answering one tool call.
// The whole poll cycle fails with it; there is no per-call isolation.
type ToolCallError struct {
	CallID   string
	Function string
	Err      error
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("tool call %s (%s): %v", e.CallID, e.Function, e.Err)
}

func (e *ToolCallError) Unwrap() error { return e.Err }
