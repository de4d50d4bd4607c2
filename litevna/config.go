package litevna

import (
	"errors"
	"time"

	"github.com/litevna/litevnaserver/logger"
)

const (
	// DefaultSettleDelay is the minimum wait between a command and reading its
	// reply, and between configuring a sweep and requesting its FIFO data.
	DefaultSettleDelay = 50 * time.Millisecond
	// DefaultFrameTimeout bounds the reception of a single FIFO frame.
	DefaultFrameTimeout = 10 * time.Second
	// DefaultReplyTimeout bounds the reception of a single-byte handshake reply.
	DefaultReplyTimeout = 2 * time.Second
	// DefaultPollTimeout bounds one serial read call.
	DefaultPollTimeout = 100 * time.Millisecond
)

// Config represents the configuration of a LiteVNA device.
type Config struct {
	// comPort is the serial port name the device is attached to.
	comPort string

	// settleDelay is the protocol settle delay. It can only be raised above
	// DefaultSettleDelay, the device does not answer reliably any sooner.
	settleDelay time.Duration

	// frameTimeout is the wall-clock limit for receiving one 32-byte FIFO frame.
	// Defaults to 10 seconds.
	frameTimeout time.Duration

	// replyTimeout is the wall-clock limit for a handshake reply.
	// Defaults to 2 seconds.
	replyTimeout time.Duration

	// pollTimeout is passed to the channel as the limit of one read call,
	// so cancellation and deadlines are noticed at this granularity.
	// Defaults to 100 milliseconds.
	pollTimeout time.Duration

	opener OpenFunc
	logger logger.Logger
}

// NewConfig creates a device configuration for comPort with the given options.
func NewConfig(comPort string, opts ...ConfigOption) (*Config, error) {
	if comPort == "" {
		return nil, errors.New("com port is empty")
	}

	cfg := &Config{
		comPort:      comPort,
		settleDelay:  DefaultSettleDelay,
		frameTimeout: DefaultFrameTimeout,
		replyTimeout: DefaultReplyTimeout,
		pollTimeout:  DefaultPollTimeout,
		opener:       OpenSerial,
		logger:       logger.Discard(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ComPort returns the serial port name.
func (cfg *Config) ComPort() string { return cfg.comPort }

// SettleDelay returns the protocol settle delay.
func (cfg *Config) SettleDelay() time.Duration { return cfg.settleDelay }

// FrameTimeout returns the per-frame receive limit.
func (cfg *Config) FrameTimeout() time.Duration { return cfg.frameTimeout }

// ConfigOption represents a functional option for configuring a Config.
type ConfigOption interface {
	apply(*Config) error
}

type configOptFunc func(*Config) error

func (f configOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithLogger sets the logger. The device binds it to the lite_vna category.
func WithLogger(l logger.Logger) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithSettleDelay sets the protocol settle delay. It should be between 50 milliseconds and 1 second.
func WithSettleDelay(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < DefaultSettleDelay || d > time.Second {
			return errors.New("settle delay should be between 50ms and 1s")
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithFrameTimeout sets the per-frame receive limit. It should be between 100 milliseconds and 60 seconds.
func WithFrameTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < 100*time.Millisecond || d > time.Minute {
			return errors.New("frame timeout should be between 100ms and 60s")
		}
		cfg.frameTimeout = d

		return nil
	})
}

// WithReplyTimeout sets the handshake reply limit. It should be between 100 milliseconds and 60 seconds.
func WithReplyTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < 100*time.Millisecond || d > time.Minute {
			return errors.New("reply timeout should be between 100ms and 60s")
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithPollTimeout sets the limit of one serial read call. It should be between 1 millisecond and 1 second.
func WithPollTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < time.Millisecond || d > time.Second {
			return errors.New("poll timeout should be between 1ms and 1s")
		}
		cfg.pollTimeout = d

		return nil
	})
}

// WithOpener replaces the function that opens the serial channel. Defaults to OpenSerial.
func WithOpener(open OpenFunc) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if open == nil {
			return errors.New("opener is nil")
		}
		cfg.opener = open

		return nil
	})
}
