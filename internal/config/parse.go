package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
)

// Parse builds the configuration from command line arguments, without the
// program name. When -config names a file it is loaded first and every flag
// given on the command line overrides the matching file value.
//
// Parse returns ErrHelpRequested or ErrVersionRequested when asked to, and
// an ErrArgument error when the result does not pass Validate.
func Parse(args []string) (*Config, error) {
	var (
		comPort    string
		tcpPort    string
		categories string
		file       string
		async      bool
		configPath string
		help       bool
		version    bool
	)

	fs := flag.NewFlagSet("litevnaserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.StringVar(&comPort, "com-port", "", "serial port where the LiteVNA device is connected")
	fs.StringVar(&tcpPort, "tcp-port", "", "tcp port to listen on")
	fs.StringVar(&categories, "logger-categories", "", "comma separated logger categories")
	fs.StringVar(&file, "logger-file", "", "logger output file")
	fs.BoolVar(&async, "logger-async", false, "write log records from a background goroutine")
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&help, "help", false, "display usage")
	fs.BoolVar(&version, "version", false, "display version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelpRequested
		}

		return nil, fmt.Errorf("%w: %w. %s", ErrArgument, err, helpHint)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: Option `%s` is invalid. %s", ErrArgument, fs.Arg(0), helpHint)
	}

	switch {
	case version:
		return nil, ErrVersionRequested
	case help:
		return nil, ErrHelpRequested
	}

	cfg := &Config{}
	if configPath != "" {
		loaded, err := Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "com-port":
			cfg.ComPort = comPort
		case "tcp-port":
			port, err := strconv.Atoi(tcpPort)
			if err != nil || port == 0 {
				parseErr = fmt.Errorf("%w: Invalid tcp port `%s`", ErrArgument, tcpPort)
				return
			}
			cfg.TCPPort = port
		case "logger-categories":
			cfg.Logger.Categories = categories
		case "logger-file":
			cfg.Logger.File = file
		case "logger-async":
			cfg.Logger.Async = async
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
