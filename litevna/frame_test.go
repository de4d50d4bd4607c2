package litevna

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, byte(0x46), Checksum(nil))
	assert.Equal(t, byte(0x3D), Checksum(make([]byte, 31)))

	seq := make([]byte, 31)
	for i := range seq {
		seq[i] = byte(i)
	}
	assert.Equal(t, byte(0xC8), Checksum(seq))
	assert.Equal(t, Checksum(seq), Checksum(bytes.Clone(seq)))
}

func TestChecksum_SingleBitFlips(t *testing.T) {
	corpus := [][]byte{
		make([]byte, 31),
		bytes.Repeat([]byte{0xFF}, 31),
		testFrame(3, 7).Pack()[:31],
		testFrame(200, -11).Pack()[:31],
	}

	total, changed := 0, 0
	for _, input := range corpus {
		base := Checksum(input)
		for i := range input {
			for bit := range 8 {
				flipped := bytes.Clone(input)
				flipped[i] ^= 1 << bit
				total++
				if Checksum(flipped) != base {
					changed++
				}
			}
		}
	}

	assert.GreaterOrEqual(t, float64(changed)/float64(total), 0.99)
}

func TestFrame_PackParse(t *testing.T) {
	require := require.New(t)

	f := testFrame(513, 9)
	f.Reserved = [5]byte{1, 2, 3, 4, 5}
	data := f.Pack()
	require.Len(data, FrameSize)

	// fixed little-endian layout
	require.Equal([]byte{0x28, 0x23, 0x00, 0x00}, data[0:4]) // 9000
	require.Equal([]byte{0xF8, 0xF8, 0xFF, 0xFF}, data[4:8]) // -1800
	require.Equal([]byte{0x01, 0x02}, data[24:26])
	require.Equal([]byte{1, 2, 3, 4, 5}, data[26:31])
	require.Equal(Checksum(data[:31]), data[31])

	parsed, err := ParseFrame(data)
	require.NoError(err)
	require.Equal(f, parsed)
}

func TestParseFrame_Errors(t *testing.T) {
	data := testFrame(0, 1).Pack()

	_, err := ParseFrame(data[:31])
	require.ErrorIs(t, err, ErrLiteVNA)

	data[5] ^= 0x10
	_, err = ParseFrame(data)
	require.ErrorIs(t, err, ErrInvalidChecksum)
	require.ErrorIs(t, err, ErrLiteVNA)
	assert.Contains(t, err.Error(), "Invalid Checksum")
}

func TestFrame_Ratios(t *testing.T) {
	f := &Frame{
		Channel0OutRe: 2, Channel0OutIm: 0,
		Channel0InRe: 1, Channel0InIm: 1,
		Channel1InRe: 0, Channel1InIm: -4,
	}

	assert.Equal(t, complex(2, 0), f.Channel0Out())
	assert.Equal(t, complex(0.5, 0.5), f.Channel0In())
	assert.Equal(t, complex(0, -2), f.Channel1In())
}
