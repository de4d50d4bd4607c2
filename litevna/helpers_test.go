package litevna

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock drives Device.now and Device.sleep without real waiting.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)

	return nil
}

// fakeVNA emulates the device side of the serial protocol.
//
// Every Write is one command. Replies and FIFO data are queued to rx, the
// host receive buffer, which clearing the device FIFO leaves untouched. rx is
// read back in chunks of at most chunk bytes. An empty read advances the clock by
// pollStep, as a real read would block for the poll timeout.
type fakeVNA struct {
	clock    *fakeClock
	pollStep time.Duration
	chunk    int

	indicate byte
	variant  byte
	version  byte
	mute     bool

	mode byte
	fifo [][]byte
	// silence is the number of empty reads served before the next data.
	silence int

	rx       []byte
	writes   [][]byte
	writeErr error
	closed   bool
}

func newFakeVNA(clock *fakeClock) *fakeVNA {
	return &fakeVNA{
		clock:    clock,
		pollStep: DefaultPollTimeout,
		indicate: IndicateReply,
		variant:  DeviceVariant,
		version:  ProtocolVersion,
		mode:     SamplesModeDeviceCalibration,
	}
}

func (v *fakeVNA) Write(p []byte) (int, error) {
	if v.closed {
		return 0, errors.New("closed")
	}
	if v.writeErr != nil {
		return 0, v.writeErr
	}
	v.writes = append(v.writes, bytes.Clone(p))

	switch {
	case len(p) == 3 && p[0] == CmdWrite1 && p[1] == RegSamplesMode:
		v.mode = p[2]
	case bytes.Equal(p, []byte{CmdIndicate}):
		v.reply(v.indicate)
	case bytes.Equal(p, []byte{CmdRead1, RegDeviceVariant}):
		v.reply(v.variant)
	case bytes.Equal(p, []byte{CmdRead1, RegProtocolVersion}):
		v.reply(v.version)
	case bytes.Equal(p, []byte{CmdReadFifo, RegReadFifo, SendAllPoints}):
		if v.mode == SamplesModeDeviceCalibration {
			for _, f := range v.fifo {
				v.rx = append(v.rx, f...)
			}
		}
	}

	return len(p), nil
}

func (v *fakeVNA) reply(b byte) {
	if !v.mute {
		v.rx = append(v.rx, b)
	}
}

func (v *fakeVNA) Read(p []byte) (int, error) {
	if v.closed {
		return 0, errors.New("closed")
	}

	if len(v.rx) == 0 || v.silence > 0 {
		if v.silence > 0 {
			v.silence--
		}
		v.clock.t = v.clock.t.Add(v.pollStep)

		return 0, nil
	}

	n := min(len(p), len(v.rx))
	if v.chunk > 0 {
		n = min(n, v.chunk)
	}
	copy(p, v.rx[:n])
	v.rx = v.rx[n:]

	return n, nil
}

func (v *fakeVNA) Close() error {
	v.closed = true
	return nil
}

// newTestDevice returns an unopened device wired to vna and its clock.
func newTestDevice(t *testing.T, vna *fakeVNA, opts ...ConfigOption) *Device {
	t.Helper()

	opener := func(string, time.Duration) (ByteChannel, error) {
		vna.closed = false
		return vna, nil
	}
	cfg, err := NewConfig("/dev/ttyACM0", append([]ConfigOption{WithOpener(opener)}, opts...)...)
	require.NoError(t, err)

	d := New(cfg)
	d.now = vna.clock.now
	d.sleep = vna.clock.sleep

	return d
}

// newOpenDevice returns an opened device with the handshake traffic cleared.
func newOpenDevice(t *testing.T) (*Device, *fakeVNA) {
	t.Helper()

	vna := newFakeVNA(newFakeClock())
	d := newTestDevice(t, vna)
	require.NoError(t, d.Open(context.Background()))

	vna.writes = nil
	vna.clock.slept = nil

	return d, vna
}

// testFrame builds a valid frame for index idx with sample values derived from seed.
func testFrame(idx uint16, seed int32) *Frame {
	return &Frame{
		Channel0OutRe: 1000 * seed,
		Channel0OutIm: -200 * seed,
		Channel0InRe:  300 * seed,
		Channel0InIm:  40 * seed,
		Channel1InRe:  -50 * seed,
		Channel1InIm:  600 * seed,
		FreqIndex:     idx,
	}
}

// babbler is a channel whose input never goes quiet.
type babbler struct {
	clock *fakeClock
}

func (b *babbler) Write(p []byte) (int, error) { return len(p), nil }

func (b *babbler) Read(p []byte) (int, error) {
	b.clock.t = b.clock.t.Add(10 * time.Millisecond)
	p[0] = 0xFF

	return 1, nil
}

func (b *babbler) Close() error { return nil }
