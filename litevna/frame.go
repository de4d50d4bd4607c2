package litevna

import (
	"encoding/binary"
	"fmt"
)

// FrameSize is the size of one FIFO frame on the wire.
const FrameSize = 32

// checksumSeed is the initial value of the running frame checksum.
const checksumSeed byte = 0x46

// Frame is one FIFO record: the raw reference and measured channel samples of
// a single frequency point.
//
// The wire layout is little-endian and unpadded:
//
//	[ch0OutRe(4)][ch0OutIm(4)][ch0InRe(4)][ch0InIm(4)][ch1InRe(4)][ch1InIm(4)]
//	[freqIndex(2)][reserved(5)][checksum(1)]
type Frame struct {
	Channel0OutRe int32
	Channel0OutIm int32
	Channel0InRe  int32
	Channel0InIm  int32
	Channel1InRe  int32
	Channel1InIm  int32
	FreqIndex     uint16
	Reserved      [5]byte
}

// Checksum computes the running checksum over data.
//
// Starting from 0x46, every byte b updates the sum c as
// c = (c ^ ((c << 1) | 1)) ^ b, truncated to eight bits.
// For a frame, data is the first FrameSize-1 bytes.
func Checksum(data []byte) byte {
	c := checksumSeed
	for _, b := range data {
		c = (c ^ ((c << 1) | 1)) ^ b
	}

	return c
}

// Pack serializes the frame to its wire format, including the checksum byte.
func (f *Frame) Pack() []byte {
	buf := make([]byte, FrameSize)

	binary.LittleEndian.PutUint32(buf[0:], uint32(f.Channel0OutRe)) //nolint:gosec // two's complement wire format
	binary.LittleEndian.PutUint32(buf[4:], uint32(f.Channel0OutIm)) //nolint:gosec
	binary.LittleEndian.PutUint32(buf[8:], uint32(f.Channel0InRe))  //nolint:gosec
	binary.LittleEndian.PutUint32(buf[12:], uint32(f.Channel0InIm)) //nolint:gosec
	binary.LittleEndian.PutUint32(buf[16:], uint32(f.Channel1InRe)) //nolint:gosec
	binary.LittleEndian.PutUint32(buf[20:], uint32(f.Channel1InIm)) //nolint:gosec
	binary.LittleEndian.PutUint16(buf[24:], f.FreqIndex)
	copy(buf[26:31], f.Reserved[:])
	buf[31] = Checksum(buf[:FrameSize-1])

	return buf
}

// ParseFrame deserializes a frame from exactly FrameSize bytes.
// It fails with ErrInvalidChecksum when the trailing checksum does not match.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("%w: frame length mismatch: got %d bytes, want %d", ErrLiteVNA, len(data), FrameSize)
	}

	if calc := Checksum(data[:FrameSize-1]); calc != data[FrameSize-1] {
		return nil, fmt.Errorf("%w `%d`: wire=0x%02X", ErrInvalidChecksum, calc, data[FrameSize-1])
	}

	f := &Frame{
		Channel0OutRe: int32(binary.LittleEndian.Uint32(data[0:])),  //nolint:gosec
		Channel0OutIm: int32(binary.LittleEndian.Uint32(data[4:])),  //nolint:gosec
		Channel0InRe:  int32(binary.LittleEndian.Uint32(data[8:])),  //nolint:gosec
		Channel0InIm:  int32(binary.LittleEndian.Uint32(data[12:])), //nolint:gosec
		Channel1InRe:  int32(binary.LittleEndian.Uint32(data[16:])), //nolint:gosec
		Channel1InIm:  int32(binary.LittleEndian.Uint32(data[20:])), //nolint:gosec
		FreqIndex:     binary.LittleEndian.Uint16(data[24:]),
	}
	copy(f.Reserved[:], data[26:31])

	return f, nil
}

// Channel0Out returns the reference (outgoing) sample.
func (f *Frame) Channel0Out() complex128 {
	return complex(float64(f.Channel0OutRe), float64(f.Channel0OutIm))
}

// Channel0In returns the reflected sample normalized by the reference.
func (f *Frame) Channel0In() complex128 {
	return complex(float64(f.Channel0InRe), float64(f.Channel0InIm)) / f.Channel0Out()
}

// Channel1In returns the transmitted sample normalized by the reference.
func (f *Frame) Channel1In() complex128 {
	return complex(float64(f.Channel1InRe), float64(f.Channel1InIm)) / f.Channel0Out()
}
