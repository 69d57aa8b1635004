package robot

import (
	"errors"
	"fmt"

	"github.com/reedhedges/AriaCoda/ariac"
)

var (
	// ErrAlreadyInitialized is returned by Initialize when a live session
	// already owns ARIA's process-global state.
	ErrAlreadyInitialized = errors.New("robot: ARIA already initialized in this process")

	// ErrConnectInFlight is returned when a detached native connect has not
	// returned yet.
	ErrConnectInFlight = errors.New("robot: native connect still in flight")
)

// NativeInitError wraps a failed native initialization. The session is
// closed and cannot be reused.
type NativeInitError struct {
	Err error
}

func (e *NativeInitError) Error() string {
	return fmt.Sprintf("robot: native init failed: %v", e.Err)
}

func (e *NativeInitError) Unwrap() error {
	return e.Err
}

// InvalidStateError reports an operation invoked from a state that
// forbids it.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("robot: cannot %s while %s", e.Op, e.State)
}

// FailureReason classifies a failed connect.
type FailureReason int

const (
	// ReasonRefused means the library reported it could not connect.
	ReasonRefused FailureReason = iota
	// ReasonUnrecognizedStatus means the library returned a status outside
	// its documented 0/1 contract.
	ReasonUnrecognizedStatus
)

func (r FailureReason) String() string {
	switch r {
	case ReasonRefused:
		return "refused"
	default:
		return "unrecognized status"
	}
}

// ConnectionFailedError describes a connect attempt that did not succeed.
// It is recoverable: the session stays Initialized and Connect may be
// called again.
type ConnectionFailedError struct {
	Reason FailureReason
	Status ariac.ConnectStatus
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("robot: connection failed: %s (native status %s)", e.Reason, e.Status)
}

func failure(status ariac.ConnectStatus) *ConnectionFailedError {
	reason := ReasonUnrecognizedStatus
	if status.Kind == ariac.ConnectRefused {
		reason = ReasonRefused
	}
	return &ConnectionFailedError{Reason: reason, Status: status}
}
