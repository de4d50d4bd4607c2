package litevna

import "fmt"

// ScanRequest describes one sweep: Points frequencies starting at Start and
// Step apart, all in Hz.
type ScanRequest struct {
	Start  uint64
	Step   uint64
	Points uint16
}

// Validate reports whether the device can sweep r.
func (r ScanRequest) Validate() error {
	switch {
	case r.Start == 0:
		return fmt.Errorf("%w: start must be nonzero", ErrInvalidRequest)
	case r.Step == 0:
		return fmt.Errorf("%w: step must be nonzero", ErrInvalidRequest)
	case r.Points == 0:
		return fmt.Errorf("%w: points must be nonzero", ErrInvalidRequest)
	}

	return nil
}

// Freq returns the frequency of point n.
func (r ScanRequest) Freq(n int) uint64 {
	return r.Start + uint64(n)*r.Step //nolint:gosec // n is a point index
}

// ScanValues holds the samples of one sweep, indexed by frequency index.
type ScanValues struct {
	// Channel0Out is the reference sample of each point.
	Channel0Out []complex128
	// Channel0In is the reflection (S11) of each point.
	Channel0In []complex128
	// Channel1In is the transmission (S21) of each point.
	Channel1In []complex128
}

func newScanValues(points int) *ScanValues {
	return &ScanValues{
		Channel0Out: make([]complex128, points),
		Channel0In:  make([]complex128, points),
		Channel1In:  make([]complex128, points),
	}
}

// Len returns the number of points.
func (v *ScanValues) Len() int {
	return len(v.Channel0Out)
}

func (v *ScanValues) set(f *Frame) {
	i := int(f.FreqIndex)
	v.Channel0Out[i] = f.Channel0Out()
	v.Channel0In[i] = f.Channel0In()
	v.Channel1In[i] = f.Channel1In()
}
