package litevna

import "sync/atomic"

// Metrics contains atomic counters of a device.
type Metrics struct {
	// ScanCount indicates the number of scans requested.
	ScanCount atomic.Uint64
	// ScanErrCount indicates the number of scans that failed.
	ScanErrCount atomic.Uint64
	// FrameCount indicates the number of valid FIFO frames received.
	FrameCount atomic.Uint64
	// ChecksumErrCount indicates the number of frames rejected by the checksum.
	ChecksumErrCount atomic.Uint64
	// TimeoutCount indicates the number of frame or reply timeouts.
	TimeoutCount atomic.Uint64
}

func (m *Metrics) incScanCount() {
	m.ScanCount.Add(1)
}

func (m *Metrics) incScanErrCount() {
	m.ScanErrCount.Add(1)
}

func (m *Metrics) incFrameCount() {
	m.FrameCount.Add(1)
}

func (m *Metrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}
