// Package reactor implements a single-threaded, non-blocking TCP event multiplexer.
//
// A Reactor owns every socket it accepts or connects. The owner drives it by
// calling [Reactor.Select] in a loop; there is no background goroutine. All
// handlers (accept, read, connect, close and write completion) run
// synchronously inside Select, one at a time, so handler code never needs
// locking to touch reactor state. The only call that is safe from other
// goroutines is [Reactor.Signal], which wakes a blocked Select.
//
// # Connections
//
// Each connection is identified by a [ConnID]. IDs increase monotonically and
// are never reused, even when the operating system recycles the underlying
// descriptor. Accepted connections start in [ConnectedState]; connections
// created with [Reactor.Connect] start in [ConnectingState].
//
// # Buffered writes
//
// [Reactor.Write] queues a caller-owned byte slice. The reactor reads from the
// slice until the completion handler fires, exactly once, with nil on full
// transmission or an error when the connection fails or is closed. The caller
// must not modify the slice before that. Buffers of one connection are sent
// strictly in the order they were queued; a short send keeps its position and
// resumes on the next write-readiness event.
//
// # Event sources
//
// Readiness is obtained from a per-platform event source: epoll with an
// eventfd wake descriptor on Linux, poll(2) with a wake pipe on Darwin.
// A hangup reported together with pending input is dispatched as readable
// first, so a peer that sends a request and closes is still served; an
// error condition closes the connection at once.
package reactor
