package config

import (
	"fmt"
	"runtime"
)

// AppVersion is the released version of litevnaserver.
const AppVersion = "1.0.0"

// Version returns the --version text.
func Version() string {
	return fmt.Sprintf("litevnaserver %s\nLicense: GPL 2.0 only", AppVersion)
}

// Usage returns the --help text.
func Usage() string {
	return fmt.Sprintf(usageText, examplePort())
}

func examplePort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM2"
	case "darwin":
		return "/dev/cu.usbmodem1"
	default:
		return "/dev/ttyS0"
	}
}

const usageText = `
DESCRIPTION

    LiteVNAServer is an HTTP server for querying data (in JSON format) from a LiteVNA 64 device.
    It uses device calibration data.

USAGE

    litevnaserver [options]

    Options:
        --version                    Show version information.
        --help                       Display this information.
        -com-port=<name>             (required) serial port where LiteVNA device is connected.
        -tcp-port=<number>           (required) tcp port where LiteVNAServer will listen for requests.
        -logger-categories=<options> Comma separated options: http_server,lite_vna,debug,info,error,all (default info,error).
        -logger-file=<file-name>     Logger output file (do not write to file by default).
        -logger-async                Write log records from a background goroutine.
        -config=<file-name>          YAML configuration file. Options given on the command line take precedence.

    Example:
        litevnaserver -com-port=%s -tcp-port=8888 -logger-categories=lite_vna,info,error

CONFIGURATION FILE

    com_port: /dev/ttyACM0
    tcp_port: 8888
    logger:
      categories: info,error
      file: /var/log/litevnaserver.log
      async: false

REQUEST

    Clients must send an HTTP GET request with url containing all the following parameters:
        start     sweep start frequency in Hz.
        step      sweep step frequency in Hz.
        points    number of sweep frequency points.

    Example:
        http://localhost:8888/litevna?start=4300000000&step=10000000&points=2

RETURN VALUE

    For a successful call, returns a JSON with a "result" field containing the scanned data.

    Example:

    {
      "result": [
        {
          "freq": 4300000000,
          "s11": {
            "log_mag": -11.0299,
            "phase": -159.707,
            "swr": 1.78113
          },
          "s21": {
            "log_mag": -73.0412,
            "phase": -121.084
          }
        }
      ]
    }

    If an error occurs, returns a JSON with an "error" field with a description.

    Example:

    {
        "error": "missing 'start' parameter"
    }
`
