//go:build linux || darwin

package reactor

import "sync/atomic"

// Metrics holds the reactor counters. Every field is safe to read from any goroutine.
type Metrics struct {
	// AcceptCount is the number of accepted inbound connections.
	AcceptCount atomic.Uint64
	// ConnectCount is the number of outbound connections that completed successfully.
	ConnectCount atomic.Uint64
	// CloseCount is the number of closed connections, whatever the cause.
	CloseCount atomic.Uint64
	// ActiveConnGauge is the number of currently open connections.
	ActiveConnGauge atomic.Int64
	// BytesSent is the number of payload bytes handed to the kernel.
	BytesSent atomic.Uint64
	// BytesReceived is the number of bytes read with Receive.
	BytesReceived atomic.Uint64
	// WriteErrCount is the number of buffered writes completed with an error.
	WriteErrCount atomic.Uint64
}

func (m *Metrics) incAccept() {
	m.AcceptCount.Add(1)
	m.ActiveConnGauge.Add(1)
}

func (m *Metrics) incConnect() {
	m.ConnectCount.Add(1)
	m.ActiveConnGauge.Add(1)
}

func (m *Metrics) incClose(active bool) {
	m.CloseCount.Add(1)
	if active {
		m.ActiveConnGauge.Add(-1)
	}
}

func (m *Metrics) addSent(n int) {
	m.BytesSent.Add(uint64(n)) //nolint:gosec // n is never negative
}

func (m *Metrics) addReceived(n int) {
	m.BytesReceived.Add(uint64(n)) //nolint:gosec // n is never negative
}

func (m *Metrics) incWriteErr() {
	m.WriteErrCount.Add(1)
}
