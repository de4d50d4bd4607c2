//go:build linux

package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/litevna/litevnaserver/litevna"
)

// fakeScanner records requests and returns canned values.
type fakeScanner struct {
	mu     sync.Mutex
	values *litevna.ScanValues
	err    error
	reqs   []litevna.ScanRequest
}

func (f *fakeScanner) Scan(_ context.Context, req litevna.ScanRequest) (*litevna.ScanValues, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}

	return f.values, nil
}

func (f *fakeScanner) requests() []litevna.ScanRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]litevna.ScanRequest(nil), f.reqs...)
}

// startServer runs a server on an ephemeral port until the test ends.
func startServer(t *testing.T, scanner Scanner, opts ...Option) (*Server, string) {
	t.Helper()

	s, err := New(scanner, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Listen(0))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	t.Cleanup(func() {
		s.Stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after Stop")
		}
		require.NoError(t, s.Close())
	})

	port := s.Addr().(*net.TCPAddr).Port

	return s, "127.0.0.1:" + strconv.Itoa(port)
}

// roundTrip sends each chunk separately and reads until the server closes.
func roundTrip(t *testing.T, addr string, chunks ...string) string {
	t.Helper()

	c, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetDeadline(time.Now().Add(10*time.Second)))
	for i, chunk := range chunks {
		if i > 0 {
			time.Sleep(20 * time.Millisecond)
		}
		_, err := c.Write([]byte(chunk))
		require.NoError(t, err)
	}

	resp, err := io.ReadAll(c)
	require.NoError(t, err)

	return string(resp)
}

// splitResponse returns the status line, the headers and the body.
func splitResponse(t *testing.T, resp string) (string, map[string]string, string) {
	t.Helper()

	head, body, ok := strings.Cut(resp, "\r\n\r\n")
	require.True(t, ok, "no header terminator in %q", resp)

	lines := strings.Split(head, "\r\n")
	headers := map[string]string{}
	for _, l := range lines[1:] {
		k, v, _ := strings.Cut(l, ": ")
		headers[k] = v
	}

	return lines[0], headers, body
}

func get(target string) string {
	return "GET " + target + " HTTP/1.1\r\nHost: localhost\r\n\r\n"
}

// serialVNA is a minimal device emulation for end-to-end tests: it answers
// the handshake and plays frames back on READ_FIFO.
type serialVNA struct {
	mu     sync.Mutex
	rx     []byte
	frames [][]byte
}

func (v *serialVNA) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case bytes.Equal(p, []byte{litevna.CmdIndicate}):
		v.rx = append(v.rx, litevna.IndicateReply)
	case bytes.Equal(p, []byte{litevna.CmdRead1, litevna.RegDeviceVariant}):
		v.rx = append(v.rx, litevna.DeviceVariant)
	case bytes.Equal(p, []byte{litevna.CmdRead1, litevna.RegProtocolVersion}):
		v.rx = append(v.rx, litevna.ProtocolVersion)
	case len(p) > 0 && p[0] == litevna.CmdReadFifo:
		for _, f := range v.frames {
			v.rx = append(v.rx, f...)
		}
	}

	return len(p), nil
}

func (v *serialVNA) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.rx) == 0 {
		return 0, nil
	}
	n := copy(p, v.rx)
	v.rx = v.rx[n:]

	return n, nil
}

func (v *serialVNA) Close() error { return nil }
