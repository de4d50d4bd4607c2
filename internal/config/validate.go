package config

import (
	"fmt"
)

const helpHint = "Try `litevnaserver --help`"

// Validate checks configuration correctness.
// It performs declarative validation only and never mutates cfg.
func Validate(cfg *Config) error {
	if cfg.ComPort == "" {
		return fmt.Errorf("%w: Missing `-com-port` option. %s", ErrArgument, helpHint)
	}

	if cfg.TCPPort == 0 {
		return fmt.Errorf("%w: Missing `-tcp-port` option. %s", ErrArgument, helpHint)
	}
	if cfg.TCPPort < 0 || cfg.TCPPort > 65535 {
		return fmt.Errorf("%w: Invalid tcp port `%d`", ErrArgument, cfg.TCPPort)
	}

	if _, err := cfg.LoggerCategories(); err != nil {
		return fmt.Errorf("%w: %w. %s", ErrArgument, err, helpHint)
	}

	return nil
}
