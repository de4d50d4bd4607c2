package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/litevna/litevnaserver/litevna"
	"github.com/litevna/litevnaserver/logger"
	"github.com/litevna/litevnaserver/reactor"
)

const (
	// DefaultMaxRequestSize bounds the bytes buffered while waiting for the request line.
	DefaultMaxRequestSize = 8 << 10

	// selectTimeout is the granularity at which Run notices Stop and cancellation.
	selectTimeout = 100 * time.Millisecond
)

// Scanner runs one sweep. *litevna.Device implements it.
type Scanner interface {
	Scan(ctx context.Context, req litevna.ScanRequest) (*litevna.ScanValues, error)
}

var _ Scanner = (*litevna.Device)(nil)

// Option configures a Server created by New.
type Option interface {
	apply(*Server) error
}

type optFunc func(*Server) error

func (f optFunc) apply(s *Server) error { return f(s) }

// WithLogger sets the logger. The server binds it to the http_server category.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Server) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		s.logger = l

		return nil
	})
}

// WithMaxRequestSize sets the request line limit in bytes. It should be between 64 and 1 MiB.
func WithMaxRequestSize(n int) Option {
	return optFunc(func(s *Server) error {
		if n < 64 || n > 1<<20 {
			return errors.New("max request size should be between 64 and 1048576")
		}
		s.maxRequestSize = n

		return nil
	})
}

// session is the per-connection state, stored as the reactor tag.
type session struct {
	buf       []byte
	responded bool
}

// Server is the request dispatcher: it reads request lines from the reactor,
// runs the sweep and writes the JSON response.
type Server struct {
	logger         logger.Logger
	maxRequestSize int

	scanner Scanner
	reactor *reactor.Reactor

	runCtx  context.Context
	stopped atomic.Bool
}

// New creates a Server that runs sweeps on scanner.
func New(scanner Scanner, opts ...Option) (*Server, error) {
	if scanner == nil {
		return nil, errors.New("scanner is nil")
	}

	s := &Server{
		logger:         logger.Discard(),
		maxRequestSize: DefaultMaxRequestSize,
		scanner:        scanner,
		runCtx:         context.Background(),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.Category(logger.CategoryHTTPServer)

	r, err := reactor.New(reactor.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.reactor = r

	r.OnAccept(s.onAccept)
	r.OnRead(s.onRead)

	return s, nil
}

// Listen binds the TCP port. Port 0 selects an ephemeral port, see Addr.
func (s *Server) Listen(port uint16) error {
	if err := s.reactor.Listen(port); err != nil {
		return err
	}
	s.logger.Info("Listening", "address", s.reactor.Addr().String())

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr { return s.reactor.Addr() }

// Metrics returns the transport counters.
func (s *Server) Metrics() *reactor.Metrics { return s.reactor.Metrics() }

// Run drives the reactor until Stop is called or ctx is done. A sweep in
// progress sees ctx and is aborted when it ends. Run returns an error only
// when the event source fails.
func (s *Server) Run(ctx context.Context) error {
	s.runCtx = ctx
	stopWake := context.AfterFunc(ctx, s.Stop)
	defer stopWake()

	for !s.stopped.Load() {
		if _, err := s.reactor.Select(selectTimeout); err != nil {
			return err
		}
	}

	return nil
}

// Stop asks Run to return. It is safe to call from any goroutine.
func (s *Server) Stop() {
	s.stopped.Store(true)
	_ = s.reactor.Signal()
}

// Close releases every connection and the listening socket.
// It must be called after Run returned.
func (s *Server) Close() error {
	return s.reactor.Shutdown()
}

func (s *Server) onAccept(id reactor.ConnID, remote net.Addr) any {
	s.logger.Debug("Connection accepted", "socket_id", id, "remote", remote.String())

	return &session{}
}

func (s *Server) onRead(id reactor.ConnID, available int, tag any) {
	sess, _ := tag.(*session)
	if sess == nil {
		sess = &session{}
		_ = s.reactor.SetTag(id, sess)
	}

	start := len(sess.buf)
	sess.buf = append(sess.buf, make([]byte, available)...)

	n, err := s.reactor.Receive(id, sess.buf[start:])
	sess.buf = sess.buf[:start+n]
	if err != nil {
		s.logger.Error("Error reading tcp socket", "socket_id", id, "error", err)
		_ = s.reactor.Close(id)

		return
	}

	// one request per connection, anything after it is ignored.
	if sess.responded {
		sess.buf = sess.buf[:0]
		return
	}

	if !bytes.Contains(sess.buf, []byte{'\n'}) {
		if len(sess.buf) > s.maxRequestSize {
			s.logger.Debug("Request line too long", "socket_id", id, "size", len(sess.buf))
			s.respond(id, sess, responseBadRequest)
		}

		return
	}

	s.logger.Debug("Request received", "socket_id", id, "request", string(sess.buf))
	s.respond(id, sess, s.handle(sess.buf))
}

// handle maps a request to its complete HTTP response.
func (s *Server) handle(data []byte) []byte {
	method, target, ok := requestLine(data)
	if !ok {
		return responseBadRequest
	}
	if method != "GET" || target == "" {
		return responseNotAllowed
	}

	parts := strings.Split(target, "?")
	if parts[0] != "/litevna" {
		return responseNotFound
	}
	if len(parts) < 2 {
		return responseBadRequest
	}

	return jsonOK(s.execute(parseQuery(parts[1])))
}

// execute validates the parameters and runs the sweep, returning the JSON body.
func (s *Server) execute(params map[string]string) []byte {
	req, msg := parseScanRequest(params)
	if msg != "" {
		return encodeError(msg)
	}

	values, err := s.scanner.Scan(s.runCtx, req)
	if err != nil {
		return encodeError(err.Error())
	}

	body, err := encodeResult(req, values)
	if err != nil {
		s.logger.Error("Failed to encode scan result", "error", err)
		return encodeError(err.Error())
	}

	return body
}

// respond writes resp and closes the connection once it is sent.
func (s *Server) respond(id reactor.ConnID, sess *session, resp []byte) {
	sess.responded = true
	sess.buf = nil

	s.logger.Debug("Sending response", "socket_id", id, "response", string(resp))

	_ = s.reactor.Write(id, resp, nil, func(id reactor.ConnID, _ any, err error) {
		if err != nil {
			s.logger.Debug("Response not delivered", "socket_id", id, "error", err)
		}
		_ = s.reactor.Close(id)
	})
}
