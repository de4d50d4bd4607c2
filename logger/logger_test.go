package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the async flush goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := strings.TrimSpace(b.buf.String())
	if out == "" {
		return nil
	}

	return strings.Split(out, "\n")
}

func newTestLogger(t *testing.T, opts ...Option) (*SlogLogger, *syncBuffer) {
	t.Helper()
	t.Setenv("ENV", "")

	out := &syncBuffer{}
	l, err := New(append([]Option{WithOutput(out)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	return l, out
}

func decodeRecord(t *testing.T, line string) map[string]any {
	t.Helper()

	rec := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(line), &rec))

	return rec
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"info,error", CategoryInfo | CategoryError, false},
		{"lite_vna,http_server", CategoryLiteVNA | CategoryHTTPServer, false},
		{"debug", CategoryDebug, false},
		{"all", CategoryAll, false},
		{" info , ,error", CategoryInfo | CategoryError, false},
		{"", 0, false},
		{"info,verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategories(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "verbose")

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "error,info", DefaultCategories.String())
	assert.Equal(t, "lite_vna", CategoryLiteVNA.String())
	assert.Equal(t, "all", CategoryAll.String())
}

func TestSlogLogger_DefaultCategories(t *testing.T) {
	l, out := newTestLogger(t, WithLevel(DebugLevel))

	l.Info("info record")
	l.Error("error record")
	l.Debug("debug record")
	l.Category(CategoryLiteVNA).Debug("trace record")

	lines := out.lines()
	require.Len(t, lines, 2)

	first := decodeRecord(t, lines[0])
	assert.Equal(t, "info record", first["msg"])
	assert.Contains(t, first, "ts")
	assert.Equal(t, "error record", decodeRecord(t, lines[1])["msg"])
}

func TestSlogLogger_ComponentCategory(t *testing.T) {
	l, out := newTestLogger(t, WithLevel(DebugLevel), WithCategories(CategoryLiteVNA|CategoryInfo))

	vna := l.Category(CategoryLiteVNA)
	httpLog := l.Category(CategoryHTTPServer)

	vna.Debug("sending", "bytes", "0D")
	httpLog.Debug("request received")
	vna.Info("found device")
	vna.Error("suppressed, error category disabled")

	lines := out.lines()
	require.Len(t, lines, 2)

	rec := decodeRecord(t, lines[0])
	assert.Equal(t, "sending", rec["msg"])
	assert.Equal(t, "lite_vna", rec["category"])
	assert.Equal(t, "0D", rec["bytes"])
	assert.Equal(t, "found device", decodeRecord(t, lines[1])["msg"])
}

func TestSlogLogger_SetCategoriesAffectsChildren(t *testing.T) {
	l, out := newTestLogger(t, WithLevel(DebugLevel), WithCategories(0))
	child := l.Category(CategoryHTTPServer).With("conn", 7)

	child.Debug("dropped")
	assert.False(t, child.Enabled(DebugLevel))

	l.SetCategories(CategoryHTTPServer)
	assert.True(t, child.Enabled(DebugLevel))
	child.Debug("kept")

	lines := out.lines()
	require.Len(t, lines, 1)
	rec := decodeRecord(t, lines[0])
	assert.Equal(t, "kept", rec["msg"])
	assert.InDelta(t, 7, rec["conn"], 0)
}

func TestSlogLogger_Level(t *testing.T) {
	l, out := newTestLogger(t, WithCategories(CategoryAll))

	assert.Equal(t, InfoLevel, l.Level())
	l.Debug("below level")
	assert.Empty(t, out.lines())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	l.Debug("at level")
	assert.Len(t, out.lines(), 1)

	l.SetLevel(ErrorLevel)
	assert.False(t, l.Enabled(WarnLevel))
	assert.True(t, l.Enabled(ErrorLevel))
}

func TestSlogLogger_FileAndAsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	l, out := newTestLogger(t, WithFile(path), WithAsync(4))
	for i := 0; i < 20; i++ {
		l.Info("record", "n", i)
	}
	require.NoError(t, l.Close())

	consoleLines := out.lines()
	require.Len(t, consoleLines, 20)
	for i, line := range consoleLines {
		assert.InDelta(t, i, decodeRecord(t, line)["n"], 0)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 20, strings.Count(string(data), "\n"))

	// records logged after Close are written synchronously.
	l.Info("late")
	assert.Len(t, out.lines(), 21)
}

func TestNew_FileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "server.log")

	l, err := New(WithFile(path))
	require.Error(t, err)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrCouldNotOpenFile)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(ErrorLevel))
	l.Error("nothing happens")
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.On("Category", CategoryLiteVNA).Once()
	m.On("Error", "scan failed", []any{"error", "boom"}).Once()

	m.Category(CategoryLiteVNA).Error("scan failed", "error", "boom")

	m.AssertExpectations(t)
}
