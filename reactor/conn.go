//go:build linux || darwin

package reactor

import (
	"net"

	"github.com/litevna/litevnaserver/internal/queue"
)

// ConnID identifies a connection owned by a Reactor.
//
// IDs start at 1 and are never reused within one Reactor.
type ConnID uint64

// ConnState represents the lifecycle stage of a connection.
type ConnState uint32

// Connection states.
const (
	// ConnectingState indicates an outbound connect that has not completed yet.
	ConnectingState ConnState = iota
	// ConnectedState indicates an established connection.
	ConnectedState
	// ErrorState indicates a connection that failed and is being torn down.
	ErrorState
)

// IsConnecting returns if the connection is still connecting.
func (cs ConnState) IsConnecting() bool { return cs == ConnectingState }

// IsConnected returns if the connection is established.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	case ErrorState:
		return "error"
	default:
		return "unknown"
	}
}

// WriteDoneFunc is the completion handler of a buffered write.
//
// It is invoked exactly once per Write call, with a nil err after the last
// byte was handed to the kernel, or with the failure that ended the write.
// tag is the value passed to Write.
type WriteDoneFunc func(id ConnID, tag any, err error)

// writeBuffer is one queued Write.
type writeBuffer struct {
	data []byte
	sent int
	tag  any
	done WriteDoneFunc
}

func (b *writeBuffer) remaining() []byte {
	return b.data[b.sent:]
}

func (b *writeBuffer) complete(id ConnID, err error) {
	if b.done != nil {
		b.done(id, b.tag, err)
	}
}

// conn is the reactor's per-connection record.
type conn struct {
	id       ConnID
	fd       int
	state    ConnState
	tag      any
	remote   net.Addr
	writes   *queue.Queue[*writeBuffer]
	interest interest
	// active is set once the connection counts towards ActiveConnGauge.
	active bool
}

func newConn(id ConnID, fd int, state ConnState, remote net.Addr) *conn {
	return &conn{
		id:       id,
		fd:       fd,
		state:    state,
		remote:   remote,
		writes:   queue.New[*writeBuffer](4),
		interest: interestRead,
	}
}
