//go:build linux || darwin

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/litevna/litevnaserver/internal/config"
	"github.com/litevna/litevnaserver/internal/pool"
	"github.com/litevna/litevnaserver/litevna"
	"github.com/litevna/litevnaserver/logger"
	"github.com/litevna/litevnaserver/reactor"
	"github.com/litevna/litevnaserver/server"
)

// shutdownTimeout bounds the wait for an in-flight scan after a signal.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	switch {
	case errors.Is(err, config.ErrHelpRequested):
		fmt.Fprint(os.Stdout, config.Usage())
		return 0
	case errors.Is(err, config.ErrVersionRequested):
		fmt.Fprintln(os.Stdout, config.Version())
		return 0
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error("litevnaserver failed", "error", err)
		return -1
	}

	return 0
}

// newLogger builds the process logging context. A logger file that cannot be
// opened is reported and logging continues on the console.
func newLogger(cfg *config.Config) (*logger.SlogLogger, error) {
	categories, err := cfg.LoggerCategories()
	if err != nil {
		return nil, err
	}

	level := logger.InfoLevel
	if categories&(logger.CategoryDebug|logger.CategoryLiteVNA|logger.CategoryHTTPServer) != 0 {
		level = logger.DebugLevel
	}

	opts := []logger.Option{logger.WithCategories(categories), logger.WithLevel(level)}
	if cfg.Logger.Async {
		opts = append(opts, logger.WithAsync(logger.DefaultAsyncQueueSize))
	}
	if cfg.Logger.File == "" {
		return logger.New(opts...)
	}

	log, err := logger.New(append(opts, logger.WithFile(cfg.Logger.File))...)
	if !errors.Is(err, logger.ErrCouldNotOpenFile) {
		return log, err
	}

	fileErr := err
	log, err = logger.New(opts...)
	if err != nil {
		return nil, err
	}
	log.Error("Could not open logger file, logging to console only", "file", cfg.Logger.File, "error", fileErr)

	return log, nil
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	vnaCfg, err := litevna.NewConfig(cfg.ComPort, litevna.WithLogger(log))
	if err != nil {
		return err
	}

	dev := litevna.New(vnaCfg)
	if err := dev.Open(ctx); err != nil {
		return err
	}
	defer dev.Close()

	srv, err := server.New(dev, server.WithLogger(log))
	if err != nil {
		return err
	}
	if err := srv.Listen(uint16(cfg.TCPPort)); err != nil { //nolint:gosec // validated to 1..65535
		_ = srv.Close()
		return err
	}

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			_ = srv.Close()
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")

		timer := pool.GetTimer(shutdownTimeout)
		defer pool.PutTimer(timer)

		select {
		case err := <-done:
			if err != nil {
				_ = srv.Close()
				return err
			}
		case <-timer.C:
			return errors.New("timed out waiting for the server to stop")
		}
	}

	if err := srv.Close(); err != nil {
		return err
	}

	logMetrics(log, srv.Metrics(), dev.Metrics())

	return nil
}

func logMetrics(log logger.Logger, rm *reactor.Metrics, dm *litevna.Metrics) {
	log.Info("Server metrics",
		"accepted", rm.AcceptCount.Load(),
		"closed", rm.CloseCount.Load(),
		"bytes_sent", rm.BytesSent.Load(),
		"bytes_received", rm.BytesReceived.Load(),
		"write_errors", rm.WriteErrCount.Load(),
	)
	log.Info("Device metrics",
		"scans", dm.ScanCount.Load(),
		"scan_errors", dm.ScanErrCount.Load(),
		"frames", dm.FrameCount.Load(),
		"checksum_errors", dm.ChecksumErrCount.Load(),
		"timeouts", dm.TimeoutCount.Load(),
	)
}
