package server

import (
	"strconv"
	"strings"

	"github.com/litevna/litevnaserver/litevna"
)

// parseQuery splits a query string into key/value pairs. Entries without
// exactly one '=' are skipped and the first occurrence of a key wins.
// Values are taken verbatim, without percent-decoding.
func parseQuery(query string) map[string]string {
	params := make(map[string]string)

	for _, entry := range strings.Split(query, "&") {
		kv := strings.Split(entry, "=")
		if len(kv) != 2 {
			continue
		}
		if _, ok := params[kv[0]]; !ok {
			params[kv[0]] = kv[1]
		}
	}

	return params
}

// parseScanRequest validates start, step and points in that order and
// returns the message of the first violation.
func parseScanRequest(params map[string]string) (litevna.ScanRequest, string) {
	var req litevna.ScanRequest

	start, msg := parseUint(params, "start", 64)
	if msg != "" {
		return req, msg
	}

	step, msg := parseUint(params, "step", 64)
	if msg != "" {
		return req, msg
	}

	points, msg := parseUint(params, "points", 16)
	if msg != "" {
		return req, msg
	}

	req.Start = start
	req.Step = step
	req.Points = uint16(points) //nolint:gosec // bounded by bitSize

	return req, ""
}

// parseUint parses a nonzero decimal of at most bitSize bits.
func parseUint(params map[string]string, key string, bitSize int) (uint64, string) {
	raw, ok := params[key]
	if !ok {
		return 0, "missing '" + key + "' parameter"
	}

	v, err := strconv.ParseUint(raw, 10, bitSize)
	if err != nil || v == 0 {
		return 0, "invalid '" + key + "' parameter"
	}

	return v, ""
}

// requestLine extracts the method and target of the first line of data.
func requestLine(data []byte) (method, target string, ok bool) {
	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Fields(strings.TrimRight(line, "\r"))

	switch len(fields) {
	case 0:
		return "", "", false
	case 1:
		return fields[0], "", true
	default:
		return fields[0], fields[1], true
	}
}
