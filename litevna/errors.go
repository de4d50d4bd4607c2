package litevna

import (
	"errors"
	"fmt"
)

var (
	// ErrLiteVNA is the category of every device protocol violation.
	ErrLiteVNA = errors.New("lite_vna_error")

	// ErrSerialPort is the category of serial transport failures.
	ErrSerialPort = errors.New("serial_port_error")

	// ErrNotOpened indicates use of a device whose serial port is not open.
	ErrNotOpened = errors.New("serial_port_not_opened")
)

var (
	// ErrFifoTimeout indicates that a FIFO frame was not complete within the frame timeout.
	ErrFifoTimeout = fmt.Errorf("%w: Timeout reading LiteVNA Fifo data", ErrLiteVNA)

	// ErrReplyTimeout indicates that the device did not answer a register read.
	ErrReplyTimeout = fmt.Errorf("%w: Timeout reading LiteVNA reply", ErrLiteVNA)

	// ErrInvalidChecksum indicates a FIFO frame whose checksum byte does not match its content.
	ErrInvalidChecksum = fmt.Errorf("%w: Invalid Checksum", ErrLiteVNA)

	// ErrInvalidFrequencyIndex indicates a FIFO frame whose index is outside the sweep.
	ErrInvalidFrequencyIndex = fmt.Errorf("%w: Invalid Frequency Index", ErrLiteVNA)

	// ErrUnexpectedReply indicates a handshake reply other than the expected byte.
	ErrUnexpectedReply = fmt.Errorf("%w: unexpected reply", ErrLiteVNA)

	// ErrInvalidRequest indicates scan parameters the device cannot sweep.
	ErrInvalidRequest = fmt.Errorf("%w: invalid scan request", ErrLiteVNA)
)
