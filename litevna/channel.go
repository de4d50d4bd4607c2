package litevna

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// BaudRate is the fixed LiteVNA serial speed. The link runs 8N1.
const BaudRate = 115200

// ByteChannel is the blocking serial transport consumed by Device.
//
// Read waits at most the channel's poll timeout and returns 0 and a nil error
// when no byte arrived in that time. Write transmits the whole slice or fails.
type ByteChannel interface {
	io.ReadWriteCloser
}

// OpenFunc opens the ByteChannel for a port name. pollTimeout bounds a single Read.
type OpenFunc func(address string, pollTimeout time.Duration) (ByteChannel, error)

// OpenSerial opens address (for example /dev/ttyACM0 or COM3) at 115200 baud,
// no parity, 8 data bits and 1 stop bit.
func OpenSerial(address string, pollTimeout time.Duration) (ByteChannel, error) {
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  pollTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Error opening serial port %s: %w", ErrSerialPort, address, err)
	}

	return &serialChannel{port: port}, nil
}

type serialChannel struct {
	port serial.Port
}

func (c *serialChannel) Read(p []byte) (int, error) {
	n, err := c.port.Read(p)
	if errors.Is(err, serial.ErrTimeout) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("%w: Serial port error calling method `read`: %w", ErrSerialPort, err)
	}

	return n, nil
}

func (c *serialChannel) Write(p []byte) (int, error) {
	for written := 0; written < len(p); {
		n, err := c.port.Write(p[written:])
		written += n

		if err != nil {
			return written, fmt.Errorf("%w: Serial port error calling method `write`: %w", ErrSerialPort, err)
		}
	}

	return len(p), nil
}

func (c *serialChannel) Close() error {
	if err := c.port.Close(); err != nil {
		return fmt.Errorf("%w: Serial port error calling method `close`: %w", ErrSerialPort, err)
	}

	return nil
}
