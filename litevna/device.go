package litevna

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litevna/litevnaserver/internal/pool"
	"github.com/litevna/litevnaserver/logger"
)

// Device is a LiteVNA session: one serial channel opened by Open, reused by
// every Scan until Close.
type Device struct {
	cfg     *Config
	logger  logger.Logger
	ch      ByteChannel
	metrics Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	frame [FrameSize]byte
}

// New creates a Device for cfg. The serial port is opened by Open.
func New(cfg *Config) *Device {
	return &Device{
		cfg:    cfg,
		logger: cfg.logger.Category(logger.CategoryLiteVNA),
		now:    time.Now,
		sleep:  pool.Sleep,
	}
}

// Metrics returns the device counters.
func (d *Device) Metrics() *Metrics { return &d.metrics }

// IsOpen reports whether Open succeeded and Close was not called since.
func (d *Device) IsOpen() bool { return d.ch != nil }

// Open opens the serial channel and performs the handshake: clear FIFO, leave
// data mode, then check the INDICATE reply, the device variant and the
// protocol version. On failure the channel is closed again.
// Calling Open on an open device is a no-op.
func (d *Device) Open(ctx context.Context) error {
	if d.ch != nil {
		return nil
	}

	ch, err := d.cfg.opener(d.cfg.comPort, d.cfg.pollTimeout)
	if err != nil {
		return err
	}
	d.ch = ch

	if err := d.handshake(ctx); err != nil {
		_ = d.Close()
		return err
	}

	d.logger.Info("Found LiteVNA at com port", "com_port", d.cfg.comPort)

	return nil
}

func (d *Device) handshake(ctx context.Context) error {
	if err := d.send(cmdClearFifo()); err != nil {
		return err
	}
	if err := d.send(cmdLeaveDataMode()); err != nil {
		return err
	}
	if err := d.expect(ctx, cmdIndicate(), "indicate", IndicateReply, true); err != nil {
		return err
	}
	if err := d.expect(ctx, cmdRead1("Device Variant", RegDeviceVariant), "variant", DeviceVariant, true); err != nil {
		return err
	}

	return d.expect(ctx, cmdRead1("Protocol Version", RegProtocolVersion), "protocol version", ProtocolVersion, false)
}

// Close closes the serial channel. Closing a closed device is a no-op.
func (d *Device) Close() error {
	if d.ch == nil {
		return nil
	}

	err := d.ch.Close()
	d.ch = nil

	return err
}

// Scan runs one sweep and returns its samples stored by the frequency index
// each frame reports.
//
// Any failure aborts the scan without retry. The device stays open; a failure
// after entering data mode leaves the device in data mode and possibly the
// rest of the sweep in the host's receive buffer. The next Scan clears the
// FIFO, discards that input and enters data mode again.
func (d *Device) Scan(ctx context.Context, req ScanRequest) (*ScanValues, error) {
	d.metrics.incScanCount()

	values, err := d.scan(ctx, req)
	if err != nil {
		d.metrics.incScanErrCount()
		switch {
		case errors.Is(err, ErrInvalidChecksum):
			d.metrics.incChecksumErrCount()
		case errors.Is(err, ErrFifoTimeout), errors.Is(err, ErrReplyTimeout):
			d.metrics.incTimeoutCount()
		}
		d.logger.Error("scan failed", "start", req.Start, "step", req.Step, "points", req.Points, "error", err)

		return nil, err
	}

	return values, nil
}

func (d *Device) scan(ctx context.Context, req ScanRequest) (*ScanValues, error) {
	if d.ch == nil {
		return nil, fmt.Errorf("%w: Serial port is not Opened", ErrNotOpened)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d.logger.Debug("Scanning", "start", req.Start, "step", req.Step, "points", req.Points)

	if err := d.send(cmdClearFifo()); err != nil {
		return nil, err
	}
	// clearing the device FIFO leaves what the host already received, such
	// as the rest of an aborted sweep.
	if err := d.drain(ctx); err != nil {
		return nil, err
	}

	setup := []command{
		cmdEnterDataMode(),
		cmdWrite8("Sweep start value", RegSweepStart, req.Start),
		cmdWrite8("Sweep step value", RegSweepStep, req.Step),
		cmdWrite2("Sweep points value", RegSweepPoints, req.Points),
		cmdWrite2("Values per frequency", RegValuesPerFrequency, 1),
	}
	for _, cmd := range setup {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.send(cmd); err != nil {
			return nil, err
		}
	}

	if err := d.sleep(ctx, d.cfg.settleDelay); err != nil {
		return nil, err
	}

	if err := d.send(cmdReadFifo()); err != nil {
		return nil, err
	}

	points := int(req.Points)
	values := newScanValues(points)

	for range points {
		if err := d.readFull(ctx, d.frame[:], d.cfg.frameTimeout, ErrFifoTimeout); err != nil {
			return nil, err
		}

		frame, err := ParseFrame(d.frame[:])
		if err != nil {
			return nil, err
		}
		if int(frame.FreqIndex) >= points {
			return nil, fmt.Errorf("%w `%d`", ErrInvalidFrequencyIndex, frame.FreqIndex)
		}

		values.set(frame)
		d.metrics.incFrameCount()
	}

	if err := d.send(cmdClearFifo()); err != nil {
		return nil, err
	}
	if err := d.send(cmdLeaveDataMode()); err != nil {
		return nil, err
	}

	return values, nil
}

// send writes one command.
func (d *Device) send(cmd command) error {
	d.logger.Debug("Sending `"+cmd.name+"`", "bytes", formatBytes(cmd.data))

	if _, err := d.ch.Write(cmd.data); err != nil {
		return fmt.Errorf("sending `%s`: %w", cmd.name, err)
	}

	return nil
}

// drain discards pending input until a read returns no data. It fails with
// ErrReplyTimeout when the input does not go quiet within the reply timeout.
func (d *Device) drain(ctx context.Context) error {
	start := d.now()
	discarded := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := d.ch.Read(d.frame[:])
		discarded += n
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		if d.now().Sub(start) > d.cfg.replyTimeout {
			return fmt.Errorf("%w: input did not stop after discarding %d bytes", ErrReplyTimeout, discarded)
		}
	}

	if discarded > 0 {
		d.logger.Debug("Discarded stale input", "bytes", discarded)
	}

	return nil
}

// expect sends cmd, waits the settle delay and checks the single-byte reply.
func (d *Device) expect(ctx context.Context, cmd command, what string, want byte, portHint bool) error {
	if err := d.send(cmd); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.cfg.settleDelay); err != nil {
		return err
	}

	var reply [1]byte
	if err := d.readFull(ctx, reply[:], d.cfg.replyTimeout, ErrReplyTimeout); err != nil {
		return err
	}

	if reply[0] != want {
		hint := ""
		if portHint {
			hint = " Is LiteVNA connected to the correct com port?"
		}

		return fmt.Errorf("%w: Invalid device %s, expected 0x%02X but found 0x%02X.%s",
			ErrUnexpectedReply, what, want, reply[0], hint)
	}

	return nil
}

// readFull fills buf from the channel. Partial reads are continued until buf
// is complete or more than timeout elapsed since the first read, in which case
// timeoutErr is returned.
func (d *Device) readFull(ctx context.Context, buf []byte, timeout time.Duration, timeoutErr error) error {
	start := d.now()

	for pos := 0; pos < len(buf); {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := d.ch.Read(buf[pos:])
		if n > 0 {
			if d.logger.Enabled(logger.DebugLevel) {
				d.logger.Debug("Received", "bytes", formatBytes(buf[pos:pos+n]))
			}
			pos += n
		}
		if err != nil {
			return err
		}

		if pos < len(buf) && d.now().Sub(start) > timeout {
			return timeoutErr
		}
	}

	return nil
}
