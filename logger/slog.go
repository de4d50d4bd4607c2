package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/phsym/console-slog"
)

// ErrCouldNotOpenFile indicates that the log file could not be opened.
var ErrCouldNotOpenFile = errors.New("could_not_open_file")

// DefaultAsyncQueueSize is the number of records buffered by the async flush goroutine.
const DefaultAsyncQueueSize = 1024

type options struct {
	level      LogLevel
	addSource  bool
	categories Category
	output     io.Writer
	filePath   string
	async      bool
	queueSize  int
}

// Option configures a SlogLogger created by New.
type Option func(*options)

// WithLevel sets the minimum level.
func WithLevel(level LogLevel) Option {
	return func(o *options) { o.level = level }
}

// WithSource adds the source position to every record.
func WithSource(enabled bool) Option {
	return func(o *options) { o.addSource = enabled }
}

// WithCategories sets the enabled category mask.
func WithCategories(mask Category) Option {
	return func(o *options) { o.categories = mask }
}

// WithOutput sets the console writer. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithFile tees every record to the file at path, appending to it.
func WithFile(path string) Option {
	return func(o *options) { o.filePath = path }
}

// WithAsync hands records to a background goroutine that writes them in order.
// queueSize <= 0 selects DefaultAsyncQueueSize.
func WithAsync(queueSize int) Option {
	return func(o *options) {
		o.async = true
		o.queueSize = queueSize
	}
}

// sink owns the resources shared by a logger and all of its children.
type sink struct {
	closeOnce sync.Once
	async     *asyncWriter
	file      *os.File
}

func (s *sink) close() error {
	var err error

	s.closeOnce.Do(func() {
		if s.async != nil {
			s.async.Close()
		}
		if s.file != nil {
			err = s.file.Close()
		}
	})

	return err
}

// SlogLogger is the log/slog backed Logger.
type SlogLogger struct {
	mu        sync.Mutex
	logger    *slog.Logger
	level     *slog.LevelVar
	filter    *categoryFilter
	component Category
	sink      *sink
}

var _ Logger = (*SlogLogger)(nil)

// New creates a SlogLogger.
//
// Records are encoded as JSON, or with the console handler when the ENV environment
// variable is "development". New fails with ErrCouldNotOpenFile when WithFile names a
// file that cannot be opened.
func New(opts ...Option) (*SlogLogger, error) {
	o := &options{
		level:      InfoLevel,
		categories: DefaultCategories,
		output:     os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &sink{}
	out := o.output

	if o.filePath != "" {
		f, err := os.OpenFile(o.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCouldNotOpenFile, o.filePath, err)
		}
		s.file = f
		out = io.MultiWriter(out, f)
	}

	if o.async {
		s.async = newAsyncWriter(out, o.queueSize)
		out = s.async
	}

	inst := &SlogLogger{
		level:  &slog.LevelVar{},
		filter: newCategoryFilter(o.categories),
		sink:   s,
	}
	inst.level.Set(toSlogLevel(o.level))

	// the handler accepts everything; level and category gates are applied in log.
	var handler slog.Handler
	if os.Getenv("ENV") == "development" {
		handler = console.NewHandler(out, &console.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: o.addSource,
			Level:     slog.LevelDebug,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	inst.logger = slog.New(handler)

	return inst, nil
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), DebugLevel, msg, keysAndValues...)
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), InfoLevel, msg, keysAndValues...)
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), WarnLevel, msg, keysAndValues...)
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), ErrorLevel, msg, keysAndValues...)
}

func (l *SlogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), FatalLevel, msg, keysAndValues...)
	_ = l.sink.close()
	os.Exit(1)
}

func (l *SlogLogger) With(keyValues ...any) Logger {
	return &SlogLogger{
		logger:    l.logger.With(keyValues...),
		level:     l.level,
		filter:    l.filter,
		component: l.component,
		sink:      l.sink,
	}
}

func (l *SlogLogger) Category(c Category) Logger {
	return &SlogLogger{
		logger:    l.logger.With("category", c.String()),
		level:     l.level,
		filter:    l.filter,
		component: c,
		sink:      l.sink,
	}
}

func (l *SlogLogger) Enabled(level LogLevel) bool {
	if toSlogLevel(level) < l.level.Level() {
		return false
	}

	return l.filter.allows(level, l.component)
}

func (l *SlogLogger) Level() LogLevel {
	levelMap := map[slog.Level]LogLevel{
		slog.LevelDebug: DebugLevel,
		slog.LevelInfo:  InfoLevel,
		slog.LevelWarn:  WarnLevel,
		slog.LevelError: ErrorLevel,
	}
	lv := l.level.Level()
	if level, ok := levelMap[lv]; ok {
		return level
	}
	return ErrorLevel
}

func (l *SlogLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level.Set(toSlogLevel(level))
}

// Categories returns the enabled category mask.
func (l *SlogLogger) Categories() Category {
	return l.filter.get()
}

// SetCategories replaces the enabled category mask for this logger and all of its children.
func (l *SlogLogger) SetCategories(mask Category) {
	l.filter.set(mask)
}

// Close flushes pending async records and closes the log file, if any.
// Closing any logger derived from the same New call closes the shared sink.
func (l *SlogLogger) Close() error {
	return l.sink.close()
}

// log is the low-level logging method for methods that take ...any.
// It must always be called directly by an exported logging method
// or function, because it uses a fixed call depth to obtain the pc.
func (l *SlogLogger) log(ctx context.Context, level LogLevel, msg string, args ...any) {
	if level != FatalLevel && !l.Enabled(level) {
		return
	}
	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, pc)
	r.Add(args...)
	if ctx == nil {
		ctx = context.Background()
	}
	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level LogLevel) slog.Level {
	levelMap := map[LogLevel]slog.Level{ //nolint: exhaustive
		DebugLevel: slog.LevelDebug,
		InfoLevel:  slog.LevelInfo,
		WarnLevel:  slog.LevelWarn,
		ErrorLevel: slog.LevelError,
	}
	if slogLevel, ok := levelMap[level]; ok {
		return slogLevel
	}
	return slog.LevelError
}
