// Package litevna drives a LiteVNA vector network analyzer over its serial
// register protocol.
//
// A [Device] is opened once: Open connects the serial [ByteChannel] at 115200
// baud 8N1 and performs the handshake (clear FIFO, leave data mode, INDICATE,
// device variant and protocol version checks). Scan then runs one sweep and
// returns [ScanValues] ordered by the frequency index reported by the device,
// whatever order the FIFO frames arrive in.
//
// Every outbound command is [command, register, payload...] with a 0, 1, 2, 4
// or 8 byte little-endian payload. The device needs a settle delay after a
// command before its reply is valid; the Device waits at least
// [DefaultSettleDelay] before reading any reply and after configuring a sweep.
//
// A Device is not safe for concurrent use. One physical analyzer serves one
// sweep at a time and callers serialize access.
package litevna
