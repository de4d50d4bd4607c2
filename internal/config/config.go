// Package config holds the process configuration of litevnaserver: command
// line flags, an optional YAML file and their validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/litevna/litevnaserver/logger"
)

var (
	// ErrArgument indicates an invalid command line or configuration file.
	ErrArgument = errors.New("argument_error")

	// ErrHelpRequested is returned by Parse for --help. The caller prints Usage.
	ErrHelpRequested = errors.New("help_requested")

	// ErrVersionRequested is returned by Parse for --version. The caller prints Version.
	ErrVersionRequested = errors.New("version_requested")
)

type Config struct {
	ComPort string       `yaml:"com_port"`
	TCPPort int          `yaml:"tcp_port"`
	Logger  LoggerConfig `yaml:"logger"`
}

type LoggerConfig struct {
	// Categories is a comma separated list, see logger.ParseCategories.
	// Empty selects logger.DefaultCategories.
	Categories string `yaml:"categories"`
	File       string `yaml:"file"`
	Async      bool   `yaml:"async"`
}

// Load reads a YAML configuration file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read config file: %w", ErrArgument, err)
	}

	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid config file %s: %w", ErrArgument, path, err)
	}

	return cfg, nil
}

// LoggerCategories returns the configured category mask.
func (c *Config) LoggerCategories() (logger.Category, error) {
	if c.Logger.Categories == "" {
		return logger.DefaultCategories, nil
	}

	return logger.ParseCategories(c.Logger.Categories)
}
