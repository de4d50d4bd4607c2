//go:build linux || darwin

package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"

	"github.com/litevna/litevnaserver/logger"
)

// AcceptHandler is invoked after a connection was accepted and registered.
// The returned value becomes the connection's tag, handed back to the read
// and close handlers.
type AcceptHandler func(id ConnID, remote net.Addr) any

// ReadHandler is invoked when at least available bytes can be received from
// the connection without blocking. The handler performs the actual read with
// [Reactor.Receive].
type ReadHandler func(id ConnID, available int, tag any)

// ConnectHandler is invoked once an outbound connection created by
// [Reactor.Connect] completes. err is nil on success; on failure the connection
// is closed right after the handler returns.
type ConnectHandler func(id ConnID, err error)

// CloseHandler is invoked once per connection when it is closed, after every
// pending write has been completed with ErrConnClosed.
type CloseHandler func(id ConnID, tag any)

const (
	// DefaultMaxEvents is the number of readiness events fetched by one Select.
	DefaultMaxEvents = 64
	// DefaultBacklog is the listen backlog.
	DefaultBacklog = 1000

	flushStep = 100 * time.Millisecond
)

// Option configures a Reactor created by New.
type Option interface {
	apply(*Reactor) error
}

type optFunc func(*Reactor) error

func (f optFunc) apply(r *Reactor) error { return f(r) }

// WithLogger sets the logger used for connection lifecycle traces.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(r *Reactor) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		r.logger = l

		return nil
	})
}

// WithMaxEvents sets the number of readiness events fetched by one Select. It should be between 1 and 4096.
func WithMaxEvents(n int) Option {
	return optFunc(func(r *Reactor) error {
		if n < 1 || n > 4096 {
			return errors.New("max events should be between 1 and 4096")
		}
		r.maxEvents = n

		return nil
	})
}

// WithBacklog sets the listen backlog. It should be between 1 and 65535.
func WithBacklog(n int) Option {
	return optFunc(func(r *Reactor) error {
		if n < 1 || n > 65535 {
			return errors.New("backlog should be between 1 and 65535")
		}
		r.backlog = n

		return nil
	})
}

// Reactor is a single-threaded TCP event multiplexer. See the package
// documentation for the threading contract.
type Reactor struct {
	logger    logger.Logger
	maxEvents int
	backlog   int

	src    eventSource
	events []readiness

	listenFD   int
	listenAddr net.Addr

	nextID ConnID
	conns  *xsync.MapOf[ConnID, *conn]
	byFD   map[int]*conn
	// closedFDs holds descriptors closed during the current tick, whose
	// remaining events must not reach a connection that reuses the number.
	closedFDs map[int]struct{}

	onAccept  AcceptHandler
	onRead    ReadHandler
	onConnect ConnectHandler
	onClose   CloseHandler

	dispatching bool
	closed      atomic.Bool
	metrics     Metrics
	scratch     []byte
}

// New creates a Reactor and its platform event source.
// It fails with ErrSocket when the operating system refuses the resources.
func New(opts ...Option) (*Reactor, error) {
	r := &Reactor{
		logger:    logger.Discard(),
		maxEvents: DefaultMaxEvents,
		backlog:   DefaultBacklog,
		listenFD:  -1,
		conns:     xsync.NewMapOf[ConnID, *conn](),
		byFD:      make(map[int]*conn),
		closedFDs: make(map[int]struct{}),
	}

	for _, opt := range opts {
		if err := opt.apply(r); err != nil {
			return nil, err
		}
	}

	src, err := newEventSource(r.maxEvents)
	if err != nil {
		return nil, err
	}
	r.src = src
	r.events = make([]readiness, 0, r.maxEvents)

	return r, nil
}

// OnAccept registers the accept handler, replacing the previous one.
func (r *Reactor) OnAccept(h AcceptHandler) { r.onAccept = h }

// OnRead registers the read handler, replacing the previous one.
// Without a read handler, received bytes are discarded.
func (r *Reactor) OnRead(h ReadHandler) { r.onRead = h }

// OnConnect registers the connect handler, replacing the previous one.
func (r *Reactor) OnConnect(h ConnectHandler) { r.onConnect = h }

// OnClose registers the close handler, replacing the previous one.
func (r *Reactor) OnClose(h CloseHandler) { r.onClose = h }

// Metrics returns the reactor counters.
func (r *Reactor) Metrics() *Metrics { return &r.metrics }

// ConnCount returns the number of open connections. It is safe to call from any goroutine.
func (r *Reactor) ConnCount() int { return r.conns.Size() }

// Addr returns the bound listen address, or nil before Listen.
func (r *Reactor) Addr() net.Addr { return r.listenAddr }

// Listen binds all IPv4 interfaces on port and starts accepting connections.
// Port 0 binds an ephemeral port, reported by Addr.
func (r *Reactor) Listen(port uint16) error {
	if r.closed.Load() {
		return ErrReactorClosed
	}
	if r.listenFD >= 0 {
		return fmt.Errorf("%w: already listening on %s", ErrSocket, r.listenAddr)
	}

	fd, err := newSocket(unix.AF_INET)
	if err != nil {
		return err
	}

	if err := r.bindAndListen(fd, port); err != nil {
		_ = unix.Close(fd)
		return err
	}

	r.listenFD = fd
	r.logger.Debug("listening", "address", r.listenAddr.String())

	return nil
}

func (r *Reactor) bindAndListen(fd int, port uint16) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return sysErr("setsockopt", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		return sysErr("bind", err)
	}
	if err := unix.Listen(fd, r.backlog); err != nil {
		return sysErr("listen", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return sysErr("getsockname", err)
	}
	r.listenAddr = toNetAddr(sa)

	return r.src.add(fd, interestRead)
}

// Connect starts a non-blocking connection to host:port and returns its ID.
// The connection is in ConnectingState until the connect handler reports
// the outcome from a later Select. Writes queued before completion are sent
// once connected.
func (r *Reactor) Connect(host string, port uint16) (ConnID, error) {
	if r.closed.Load() {
		return 0, ErrReactorClosed
	}

	sa, family, err := resolveSockaddr(host, port)
	if err != nil {
		return 0, err
	}

	fd, err := newSocket(family)
	if err != nil {
		return 0, err
	}
	if err := tuneConn(fd); err != nil {
		r.logger.Warn("failed to tune socket", "error", err)
	}

	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return 0, sysErr("connect", err)
	}

	// completion is reported by write readiness, also when connect succeeded at once.
	c := r.register(fd, ConnectingState, toNetAddr(sa))
	c.interest = interestRead | interestWrite
	if err := r.src.add(fd, c.interest); err != nil {
		r.unregister(c)
		_ = unix.Close(fd)

		return 0, err
	}
	r.logger.Debug("connecting", "id", c.id, "remote", c.remote.String())

	return c.id, nil
}

// register allocates the next ID for fd and records the connection.
func (r *Reactor) register(fd int, state ConnState, remote net.Addr) *conn {
	r.nextID++
	c := newConn(r.nextID, fd, state, remote)
	r.conns.Store(c.id, c)
	r.byFD[fd] = c

	return c
}

func (r *Reactor) unregister(c *conn) {
	r.conns.Delete(c.id)
	delete(r.byFD, c.fd)
}

func (r *Reactor) isOpen(c *conn) bool {
	cur, ok := r.conns.Load(c.id)
	return ok && cur == c
}

// State returns the state of the connection; ok is false when it is not open.
func (r *Reactor) State(id ConnID) (state ConnState, ok bool) {
	c, ok := r.conns.Load(id)
	if !ok {
		return 0, false
	}

	return c.state, true
}

// RemoteAddr returns the peer address of the connection, or nil when it is not open.
func (r *Reactor) RemoteAddr(id ConnID) net.Addr {
	if c, ok := r.conns.Load(id); ok {
		return c.remote
	}

	return nil
}

// SetTag replaces the tag of an open connection.
func (r *Reactor) SetTag(id ConnID, tag any) error {
	c, ok := r.conns.Load(id)
	if !ok {
		return ErrUnknownConn
	}
	c.tag = tag

	return nil
}

// Select waits up to timeout for readiness and dispatches every ready event
// before returning the number of events. A negative timeout waits forever.
// An error is returned only when the wait primitive itself fails.
func (r *Reactor) Select(timeout time.Duration) (int, error) {
	if r.closed.Load() {
		return 0, ErrReactorClosed
	}
	if r.dispatching {
		return 0, ErrInHandler
	}

	events, err := r.src.wait(timeout, r.events[:0])
	r.events = events
	if err != nil {
		return 0, err
	}

	r.dispatching = true
	defer func() { r.dispatching = false }()

	clear(r.closedFDs)
	for _, ev := range events {
		if _, stale := r.closedFDs[ev.fd]; stale {
			continue
		}
		r.dispatch(ev)
	}

	return len(events), nil
}

func (r *Reactor) dispatch(ev readiness) {
	if ev.fd == r.listenFD {
		if ev.readable {
			r.acceptOne()
		}

		return
	}

	c, ok := r.byFD[ev.fd]
	if !ok {
		return
	}

	if ev.failed {
		cause := socketError(c.fd)
		// a plain hangup can still carry the peer's last bytes. The read path
		// delivers them and closes once nothing is left.
		if cause != nil || !ev.readable || !c.state.IsConnected() {
			r.failConn(c, cause)
			return
		}
	}

	if c.state.IsConnecting() {
		if !ev.writable && !ev.readable {
			return
		}
		if !r.finishConnect(c) {
			return
		}
	}

	if ev.writable && !c.writes.IsEmpty() {
		r.flushWrites(c)
		if !r.isOpen(c) {
			return
		}
	}

	if ev.readable {
		r.handleReadable(c)
	}
}

// failConn handles an error or hangup condition.
func (r *Reactor) failConn(c *conn, cause error) {
	wasConnecting := c.state.IsConnecting()
	c.state = ErrorState

	if cause == nil {
		cause = fmt.Errorf("%w: connection error or hangup", ErrSocket)
	}
	r.logger.Debug("connection failed", "id", c.id, "error", cause)

	if wasConnecting && r.onConnect != nil {
		r.onConnect(c.id, cause)
	}
	_ = r.Close(c.id)
}

// finishConnect completes an outbound connect and reports whether the
// connection is still open afterwards.
func (r *Reactor) finishConnect(c *conn) bool {
	if err := socketError(c.fd); err != nil {
		r.failConn(c, err)
		return false
	}

	c.state = ConnectedState
	c.active = true
	r.metrics.incConnect()

	if c.writes.IsEmpty() {
		if err := r.setInterest(c, interestRead); err != nil {
			r.failConn(c, err)
			return false
		}
	}
	r.logger.Debug("connected", "id", c.id, "remote", c.remote.String())

	if r.onConnect != nil {
		r.onConnect(c.id, nil)
	}

	return r.isOpen(c)
}

func (r *Reactor) acceptOne() {
	fd, sa, err := acceptConn(r.listenFD)
	if err != nil {
		switch err {
		case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
		default:
			r.logger.Error("accept failed", "error", sysErr("accept", err))
		}

		return
	}

	if err := tuneConn(fd); err != nil {
		r.logger.Warn("failed to tune socket", "error", err)
	}

	if err := r.src.add(fd, interestRead); err != nil {
		r.logger.Error("failed to register connection", "error", err)
		_ = unix.Close(fd)

		return
	}

	c := r.register(fd, ConnectedState, toNetAddr(sa))
	c.active = true
	r.metrics.incAccept()
	r.logger.Debug("accepted", "id", c.id, "remote", c.remote)

	if r.onAccept != nil {
		tag := r.onAccept(c.id, c.remote)
		if r.isOpen(c) {
			c.tag = tag
		}
	}
}

func (r *Reactor) handleReadable(c *conn) {
	available, err := unix.IoctlGetInt(c.fd, fionread)
	if err != nil {
		r.logger.Debug("ioctl failed", "id", c.id, "error", err)
		_ = r.Close(c.id)

		return
	}

	// readable with nothing to read is the peer's orderly shutdown.
	if available == 0 {
		r.logger.Debug("peer closed", "id", c.id)
		_ = r.Close(c.id)

		return
	}

	if r.onRead == nil {
		r.discard(c, available)
		return
	}
	r.onRead(c.id, available, c.tag)
}

func (r *Reactor) discard(c *conn, n int) {
	if cap(r.scratch) < n {
		r.scratch = make([]byte, n)
	}

	if _, err := r.Receive(c.id, r.scratch[:n]); err != nil {
		_ = r.Close(c.id)
	}
}

// Receive reads up to len(buf) bytes from the connection without blocking.
// It returns 0 and a nil error when no data is pending, and io.EOF after the
// peer closed its side.
func (r *Reactor) Receive(id ConnID, buf []byte) (int, error) {
	c, ok := r.conns.Load(id)
	if !ok {
		return 0, ErrUnknownConn
	}
	if len(buf) == 0 {
		return 0, nil
	}

	for {
		n, err := unix.Read(c.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, nil
		case err != nil:
			return 0, sysErr("recv", err)
		case n == 0:
			return 0, io.EOF
		}

		r.metrics.addReceived(n)

		return n, nil
	}
}

// Write queues data for transmission on the connection. The caller keeps
// ownership of data but must not modify it until done fires.
//
// done is invoked exactly once. When id is not an open connection it is
// invoked synchronously with ErrUnknownConn, which is also returned.
func (r *Reactor) Write(id ConnID, data []byte, tag any, done WriteDoneFunc) error {
	buf := &writeBuffer{data: data, tag: tag, done: done}

	if r.closed.Load() {
		r.metrics.incWriteErr()
		buf.complete(id, ErrReactorClosed)

		return ErrReactorClosed
	}

	c, ok := r.conns.Load(id)
	if !ok {
		r.metrics.incWriteErr()
		buf.complete(id, ErrUnknownConn)

		return ErrUnknownConn
	}

	c.writes.Enqueue(buf)

	if c.state.IsConnected() && c.interest&interestWrite == 0 {
		if err := r.setInterest(c, interestRead|interestWrite); err != nil {
			// completes the buffer with ErrConnClosed.
			_ = r.Close(id)
			return err
		}
	}

	return nil
}

// flushWrites sends queued buffers front to back until the queue is empty,
// the socket would block, or a short write occurs.
func (r *Reactor) flushWrites(c *conn) {
	for {
		buf, ok := c.writes.Peek()
		if !ok {
			break
		}

		if rem := buf.remaining(); len(rem) > 0 {
			n, err := unix.SendmsgN(c.fd, rem, nil, nil, sendFlags)
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				return
			}
			if err != nil {
				r.logger.Debug("send failed", "id", c.id, "error", err)
				c.state = ErrorState
				_ = r.Close(c.id)

				return
			}

			buf.sent += n
			r.metrics.addSent(n)

			if buf.sent < len(buf.data) {
				return
			}
		}

		// popped before completion so a Close from the handler cannot complete it twice.
		_, _ = c.writes.Dequeue()
		buf.complete(c.id, nil)

		if !r.isOpen(c) {
			return
		}
	}

	if err := r.setInterest(c, interestRead); err != nil {
		r.failConn(c, err)
	}
}

func (r *Reactor) setInterest(c *conn, in interest) error {
	if c.interest == in {
		return nil
	}
	if err := r.src.modify(c.fd, in); err != nil {
		return err
	}
	c.interest = in

	return nil
}

// Flush runs Select until every write queued on the connection has completed,
// the connection closed, or ctx is done. It must not be called from a handler.
func (r *Reactor) Flush(ctx context.Context, id ConnID) error {
	if r.dispatching {
		return ErrInHandler
	}

	for {
		c, ok := r.conns.Load(id)
		if !ok {
			return ErrUnknownConn
		}
		if c.writes.IsEmpty() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := r.Select(flushStep); err != nil {
			return err
		}
	}
}

// Close closes the connection. Pending writes are completed with
// ErrConnClosed, then the close handler runs, then the descriptor is released.
// Closing an ID that is not open is a no-op.
func (r *Reactor) Close(id ConnID) error {
	c, ok := r.conns.LoadAndDelete(id)
	if !ok {
		return nil
	}
	delete(r.byFD, c.fd)
	r.closedFDs[c.fd] = struct{}{}

	for {
		buf, ok := c.writes.Dequeue()
		if !ok {
			break
		}
		r.metrics.incWriteErr()
		buf.complete(id, ErrConnClosed)
	}

	if r.onClose != nil {
		r.onClose(id, c.tag)
	}

	var err error
	if rerr := r.src.remove(c.fd); rerr != nil {
		r.logger.Debug("failed to deregister connection", "id", id, "error", rerr)
	}
	if cerr := unix.Close(c.fd); cerr != nil {
		err = sysErr("close", cerr)
	}

	r.metrics.incClose(c.active)
	r.logger.Debug("closed", "id", id)

	return err
}

// Signal wakes a Select blocked in another goroutine. It is the only method
// safe to call concurrently with Select.
func (r *Reactor) Signal() error {
	return r.src.wake()
}

// Shutdown closes every connection, the listener and the event source.
// It must be called from the goroutine that drives Select, outside of handlers.
// Subsequent calls are no-ops.
func (r *Reactor) Shutdown() error {
	if r.dispatching {
		return ErrInHandler
	}
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	ids := make([]ConnID, 0, r.conns.Size())
	r.conns.Range(func(id ConnID, _ *conn) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)
	for _, id := range ids {
		_ = r.Close(id)
	}

	var errs []error
	if r.listenFD >= 0 {
		_ = r.src.remove(r.listenFD)
		if err := unix.Close(r.listenFD); err != nil {
			errs = append(errs, sysErr("close", err))
		}
		r.listenFD = -1
	}

	if err := r.src.close(); err != nil {
		errs = append(errs, err)
	}
	r.logger.Debug("reactor shut down")

	return errors.Join(errs...)
}
