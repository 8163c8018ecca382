package resolva

import (
	"context"
	"errors"
	"net"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// Configuration-time errors. These are fatal at startup.
	ErrInvalidTool   = goerr.New("invalid tool specification")
	ErrDuplicateTool = goerr.New("duplicate tool name")
	ErrUnknownTool   = goerr.New("unknown tool")

	// ErrUnknownStrategy is returned when a resolve or compare request
	// names a strategy that was never registered.
	ErrUnknownStrategy = goerr.New("unknown strategy")

	// ErrInvalidArgument is returned when a tool call does not satisfy the
	// tool contract. It is detected before any collaborator call and is
	// never retried.
	ErrInvalidArgument = goerr.New("invalid tool argument")

	// Terminal session errors.
	ErrSessionTimeout    = goerr.New("session deadline exceeded")
	ErrSessionCancelled  = goerr.New("session cancelled")
	ErrAnswerComposition = goerr.New("failed to compose answer")

	// Session trace integrity errors.
	ErrInvalidStepOrder = goerr.New("step sequence is not contiguous")
	ErrDanglingAct      = goerr.New("act step without a following observe step")
)

// ToolFailure is the structured outcome of a tool invocation that produced
// no usable result. It is recorded as an observation and never aborts the
// session; the loop reasons about degraded evidence instead.
type ToolFailure struct {
	Tool      string `json:"tool"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
	Attempts  int    `json:"attempts"`
}

func (f *ToolFailure) Error() string {
	return f.Tool + ": " + f.Message
}

// Transient marks err as retryable by the Executor: a network hiccup, a
// collaborator timeout, or a 5xx-equivalent response.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Temporary() bool { return true }

func isTemporary(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
