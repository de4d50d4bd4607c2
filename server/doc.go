// Package server exposes LiteVNA sweeps over a minimal HTTP/1.1 surface.
//
// The server runs on a single reactor goroutine. A client sends
//
//	GET /litevna?start=<Hz>&step=<Hz>&points=<n> HTTP/1.1
//
// and receives one JSON document, after which the connection is closed:
//
//	{"result":[{"freq":<Hz>,"s11":{"log_mag":<dB>,"phase":<deg>,"swr":<ratio>},"s21":{"log_mag":<dB>,"phase":<deg>}}, ...]}
//
// Parameter and scan failures are reported as HTTP 200 with {"error": "<description>"}.
// Malformed requests get a plain 400, 404 or 405 response.
//
// The sweep runs synchronously inside the read handler, so a scan in progress
// holds up every other connection until it completes. The analyzer serves one
// sweep at a time, and this keeps device access serialized without a lock.
package server
