package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a process or model cannot be found.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller does not own the process or model.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned on invalid state transitions and duplicate run attempts.
var ErrConflict = errors.New("conflict")

// ErrInvalidArgument is returned when a request is rejected before any state changes.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrEngineFault marks failures raised while computing a tick.
var ErrEngineFault = errors.New("engine fault")

// ErrTransportDisconnected is returned by transports whose peer went away.
var ErrTransportDisconnected = errors.New("transport disconnected")

// ErrInvalidToken is returned by identity verifiers for unknown or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

// EngineFault describes a failure inside a tick computation.
type EngineFault struct {
	Tick  int64
	Usage string
	Err   error
}

func (f *EngineFault) Error() string {
	if f.Usage == "" {
		return fmt.Sprintf("engine fault at tick %d: %v", f.Tick, f.Err)
	}
	return fmt.Sprintf("engine fault at tick %d in usage %q: %v", f.Tick, f.Usage, f.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (f *EngineFault) Unwrap() []error {
	return []error{ErrEngineFault, f.Err}
}
