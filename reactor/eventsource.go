//go:build linux || darwin

package reactor

import "time"

// interest is the set of readiness kinds a descriptor is registered for.
type interest uint8

const (
	interestRead interest = 1 << iota
	interestWrite
)

// readiness is one descriptor reported ready by an event source.
type readiness struct {
	fd       int
	readable bool
	writable bool
	// failed is set for error and hangup conditions.
	failed bool
}

// eventSource is the platform readiness primitive.
//
// Every method except wake is called from the reactor goroutine only.
// wake may be called concurrently with wait.
type eventSource interface {
	add(fd int, in interest) error
	modify(fd int, in interest) error
	remove(fd int) error
	// wait blocks up to timeout (forever when negative) and appends the ready
	// descriptors to out. Wake-ups are consumed internally and not reported.
	wait(timeout time.Duration, out []readiness) ([]readiness, error)
	wake() error
	close() error
}

// timeoutMillis converts timeout to the millisecond argument of epoll_wait/poll,
// rounding sub-millisecond timeouts up so they do not degrade into busy polling.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}

	ms := timeout.Milliseconds()
	if ms == 0 && timeout > 0 {
		ms = 1
	}

	return int(ms)
}
