package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litevna/litevnaserver/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "litevnaserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]string{"-com-port=/dev/ttyACM0", "-tcp-port=8888", "-logger-categories=lite_vna,info,error", "-logger-async"})
	require.NoError(err)
	require.Equal(&Config{
		ComPort: "/dev/ttyACM0",
		TCPPort: 8888,
		Logger:  LoggerConfig{Categories: "lite_vna,info,error", Async: true},
	}, cfg)

	cats, err := cfg.LoggerCategories()
	require.NoError(err)
	require.Equal(logger.CategoryLiteVNA|logger.CategoryInfo|logger.CategoryError, cats)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no args", nil, "argument_error: Missing `-com-port` option. Try `litevnaserver --help`"},
		{"missing tcp port", []string{"-com-port=COM2"}, "argument_error: Missing `-tcp-port` option. Try `litevnaserver --help`"},
		{"bad tcp port", []string{"-com-port=COM2", "-tcp-port=http"}, "argument_error: Invalid tcp port `http`"},
		{"zero tcp port", []string{"-com-port=COM2", "-tcp-port=0"}, "argument_error: Invalid tcp port `0`"},
		{"tcp port range", []string{"-com-port=COM2", "-tcp-port=70000"}, "argument_error: Invalid tcp port `70000`"},
		{"bad category", []string{"-com-port=COM2", "-tcp-port=1", "-logger-categories=info,verbose"}, "argument_error: category `verbose` is invalid. Try `litevnaserver --help`"},
		{"unknown option", []string{"-baud=9600"}, "argument_error: flag provided but not defined: -baud. Try `litevnaserver --help`"},
		{"positional", []string{"-com-port=COM2", "extra"}, "argument_error: Option `extra` is invalid. Try `litevnaserver --help`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.args)
			require.ErrorIs(t, err, ErrArgument)
			assert.EqualError(t, err, tt.msg)
			assert.Nil(t, cfg)
		})
	}
}

func TestParse_HelpAndVersion(t *testing.T) {
	_, err := Parse([]string{"--help"})
	require.ErrorIs(t, err, ErrHelpRequested)

	_, err = Parse([]string{"-h"})
	require.ErrorIs(t, err, ErrHelpRequested)

	_, err = Parse([]string{"-com-port=COM2", "--version"})
	require.ErrorIs(t, err, ErrVersionRequested)
}

func TestParse_ConfigFile(t *testing.T) {
	require := require.New(t)

	path := writeConfig(t, `
com_port: /dev/ttyACM0
tcp_port: 8888
logger:
  categories: http_server,error
  file: /tmp/server.log
`)

	cfg, err := Parse([]string{"-config=" + path})
	require.NoError(err)
	require.Equal("/dev/ttyACM0", cfg.ComPort)
	require.Equal(8888, cfg.TCPPort)
	require.Equal(LoggerConfig{Categories: "http_server,error", File: "/tmp/server.log"}, cfg.Logger)

	cfg, err = Parse([]string{"-config", path, "-tcp-port=9000", "-logger-categories=all"})
	require.NoError(err)
	require.Equal("/dev/ttyACM0", cfg.ComPort)
	require.Equal(9000, cfg.TCPPort)
	require.Equal("all", cfg.Logger.Categories)
	require.Equal("/tmp/server.log", cfg.Logger.File)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrArgument)

	_, err = Load(writeConfig(t, "com_port: COM2\nbaud_rate: 9600\n"))
	require.ErrorIs(t, err, ErrArgument)

	_, err = Load(writeConfig(t, "tcp_port: [1, 2]\n"))
	require.ErrorIs(t, err, ErrArgument)

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, &Config{}, cfg)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := &Config{ComPort: "COM2", TCPPort: 8888}
	require.NoError(t, Validate(cfg))
	require.Equal(t, &Config{ComPort: "COM2", TCPPort: 8888}, cfg)

	cats, err := cfg.LoggerCategories()
	require.NoError(t, err)
	require.Equal(t, logger.DefaultCategories, cats)
}

func TestUsageAndVersion(t *testing.T) {
	assert.Equal(t, "litevnaserver 1.0.0\nLicense: GPL 2.0 only", Version())

	usage := Usage()
	assert.Contains(t, usage, "-com-port=<name>")
	assert.Contains(t, usage, "-tcp-port=8888")
	assert.Contains(t, usage, "/litevna?start=4300000000&step=10000000&points=2")
	assert.NotContains(t, usage, "%!")
}
