package litevna

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Command bytes.
const (
	CmdIndicate byte = 0x0D
	CmdRead1    byte = 0x10
	CmdRead2    byte = 0x11
	CmdRead4    byte = 0x12
	CmdReadFifo byte = 0x18
	CmdWrite1   byte = 0x20
	CmdWrite2   byte = 0x21
	CmdWrite4   byte = 0x22
	CmdWrite8   byte = 0x23
)

// Register addresses.
const (
	RegSweepStart         byte = 0x00
	RegSweepStep          byte = 0x10
	RegSweepPoints        byte = 0x20
	RegValuesPerFrequency byte = 0x22
	RegSamplesMode        byte = 0x26
	RegReadFifo           byte = 0x30
	RegDeviceVariant      byte = 0xF0
	RegProtocolVersion    byte = 0xF1
)

// Values of RegSamplesMode.
const (
	SamplesModeAppCalibration    byte = 0x01
	SamplesModeLeave             byte = 0x02
	SamplesModeDeviceCalibration byte = 0x03
)

// Expected handshake replies.
const (
	IndicateReply   byte = 0x32
	DeviceVariant   byte = 0x02
	ProtocolVersion byte = 0x01
)

// SendAllPoints is the READ_FIFO selector asking for every point of the sweep.
const SendAllPoints byte = 0x00

// clearFifoCmd is the eight zero bytes that reset the device command parser
// and discard pending FIFO data.
var clearFifoCmd = make([]byte, 8)

// command is one outbound message together with the name used in traces and errors.
type command struct {
	name string
	data []byte
}

func cmdClearFifo() command {
	return command{name: "Clear Fifo", data: clearFifoCmd}
}

func cmdIndicate() command {
	return command{name: "Indicate", data: []byte{CmdIndicate}}
}

func cmdRead1(name string, reg byte) command {
	return command{name: name, data: []byte{CmdRead1, reg}}
}

func cmdWrite1(name string, reg byte, v byte) command {
	return command{name: name, data: []byte{CmdWrite1, reg, v}}
}

func cmdWrite2(name string, reg byte, v uint16) command {
	return command{name: name, data: binary.LittleEndian.AppendUint16([]byte{CmdWrite2, reg}, v)}
}

func cmdWrite8(name string, reg byte, v uint64) command {
	return command{name: name, data: binary.LittleEndian.AppendUint64([]byte{CmdWrite8, reg}, v)}
}

func cmdReadFifo() command {
	return command{name: "Read Fifo", data: []byte{CmdReadFifo, RegReadFifo, SendAllPoints}}
}

func cmdEnterDataMode() command {
	return cmdWrite1("Enter data mode (device calibration)", RegSamplesMode, SamplesModeDeviceCalibration)
}

func cmdLeaveDataMode() command {
	return cmdWrite1("Leave data mode", RegSamplesMode, SamplesModeLeave)
}

// formatBytes renders b as space separated upper-case hex pairs.
func formatBytes(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}

	return sb.String()
}
