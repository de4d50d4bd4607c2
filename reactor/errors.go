//go:build linux || darwin

package reactor

import (
	"errors"
	"fmt"
)

var (
	// ErrSocket is the category of every transport failure reported by the reactor.
	ErrSocket = errors.New("socket_error")

	// ErrUnknownConn indicates an operation on a ConnID that is not open.
	ErrUnknownConn = fmt.Errorf("%w: invalid connection id", ErrSocket)

	// ErrConnClosed is passed to the completion handler of every write that was
	// still queued when its connection closed.
	ErrConnClosed = fmt.Errorf("%w: Could not send data, socket is closed", ErrSocket)

	// ErrReactorClosed indicates use of a reactor after Shutdown.
	ErrReactorClosed = fmt.Errorf("%w: reactor is shut down", ErrSocket)

	// ErrInHandler indicates a call that must not be made from inside a handler.
	ErrInHandler = fmt.Errorf("%w: not allowed while dispatching events", ErrSocket)
)

// sysErr wraps a failed system call.
func sysErr(call string, err error) error {
	return fmt.Errorf("%w: `%s()` method error: %w", ErrSocket, call, err)
}
