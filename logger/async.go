package logger

import (
	"bytes"
	"io"
	"sync"
)

// asyncWriter hands encoded records to a single goroutine that writes them
// to out in the order they were produced.
type asyncWriter struct {
	out   io.Writer
	queue chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(out io.Writer, size int) *asyncWriter {
	if size <= 0 {
		size = DefaultAsyncQueueSize
	}

	w := &asyncWriter{
		out:   out,
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
	go w.flushLoop()

	return w
}

// Write queues a copy of p. It blocks while the queue is full and writes
// synchronously once the writer is closed.
func (w *asyncWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return w.out.Write(p)
	}

	w.queue <- bytes.Clone(p)

	return len(p), nil
}

// Close stops accepting records and returns once every queued record is written.
func (w *asyncWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
}

func (w *asyncWriter) flushLoop() {
	defer close(w.done)

	for rec := range w.queue {
		_, _ = w.out.Write(rec)
	}
}
