// Package testutil provides test doubles for the interfaces of pkg/polyglot
// and its subpackages, plus filesystem helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/cache"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/detect"
	"github.com/stackvity/stack-polyglot/pkg/polyglot/encoding"
)

// MockCacheManager mocks cache.Manager.
type MockCacheManager struct {
	mock.Mock
}

var _ cache.Manager = (*MockCacheManager)(nil)

func (m *MockCacheManager) Load(path string) error {
	return m.Called(path).Error(0)
}

func (m *MockCacheManager) Check(relPath string, modTime time.Time, contentHash, fingerprint string) (cache.Entry, bool) {
	args := m.Called(relPath, modTime, contentHash, fingerprint)
	entry, _ := args.Get(0).(cache.Entry)
	return entry, args.Bool(1)
}

func (m *MockCacheManager) Update(relPath string, e cache.Entry) error {
	return m.Called(relPath, e).Error(0)
}

func (m *MockCacheManager) Persist(path string) error {
	return m.Called(path).Error(0)
}

// MockDetector mocks polyglot.Detector.
type MockDetector struct {
	mock.Mock
}

var _ polyglot.Detector = (*MockDetector)(nil)

func (m *MockDetector) Detect(filename string, content []byte) detect.Result {
	res, _ := m.Called(filename, content).Get(0).(detect.Result)
	return res
}

func (m *MockDetector) Explain(filename string, content []byte) detect.Trace {
	tr, _ := m.Called(filename, content).Get(0).(detect.Trace)
	return tr
}

func (m *MockDetector) Fingerprint() string {
	return m.Called().String(0)
}

// MockEncodingHandler mocks encoding.Handler.
type MockEncodingHandler struct {
	mock.Mock
}

var _ encoding.Handler = (*MockEncodingHandler)(nil)

func (m *MockEncodingHandler) Decode(content []byte) (encoding.Decoded, error) {
	args := m.Called(content)
	d, _ := args.Get(0).(encoding.Decoded)
	return d, args.Error(1)
}

func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	return m.Called(content).Bool(0)
}

// MockHooks mocks polyglot.Hooks. Expectations must tolerate concurrent
// calls from the worker pool.
type MockHooks struct {
	mock.Mock
}

var _ polyglot.Hooks = (*MockHooks)(nil)

func (m *MockHooks) OnFileDiscovered(path string) error {
	return m.Called(path).Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status polyglot.Status, message string, duration time.Duration) error {
	return m.Called(path, status, message, duration).Error(0)
}

func (m *MockHooks) OnRunComplete(report polyglot.Report) error {
	return m.Called(report).Error(0)
}

// RecordingHooks records every status update, keyed by path.
type RecordingHooks struct {
	mu         sync.Mutex
	Discovered []string
	Statuses   map[string]polyglot.Status
	Messages   map[string]string
	Completed  *polyglot.Report
}

func (h *RecordingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Discovered = append(h.Discovered, path)
	return nil
}

func (h *RecordingHooks) OnFileStatusUpdate(path string, status polyglot.Status, message string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Statuses == nil {
		h.Statuses = make(map[string]polyglot.Status)
		h.Messages = make(map[string]string)
	}
	h.Statuses[path] = status
	h.Messages[path] = message
	return nil
}

func (h *RecordingHooks) OnRunComplete(report polyglot.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Completed = &report
	return nil
}

// Status returns the last recorded status of path.
func (h *RecordingHooks) Status(path string) polyglot.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Statuses[path]
}

// StaticSource is a FileSource over an in-memory list.
type StaticSource struct {
	Files []polyglot.File
	Err   error
}

func (s *StaticSource) Walk(ctx context.Context, emit func(polyglot.File) error) error {
	for _, f := range s.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(f); err != nil {
			return err
		}
	}
	return s.Err
}

// MemFile builds a File whose Read returns content.
func MemFile(path string, content string) polyglot.File {
	data := []byte(content)
	return polyglot.File{
		Path:    path,
		Size:    int64(len(data)),
		ModTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Read:    func() ([]byte, error) { return data, nil },
	}
}

// MockLoggerHandler mocks slog.Handler. A text handler over a buffer is
// usually simpler; use this when handler calls themselves are asserted.
type MockLoggerHandler struct {
	mock.Mock
}

func (m *MockLoggerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return m.Called(ctx, level).Bool(0)
}

func (m *MockLoggerHandler) Handle(ctx context.Context, r slog.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockLoggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h, ok := m.Called(attrs).Get(0).(slog.Handler); ok && h != nil {
		return h
	}
	return m
}

func (m *MockLoggerHandler) WithGroup(name string) slog.Handler {
	if h, ok := m.Called(name).Get(0).(slog.Handler); ok && h != nil {
		return h
	}
	return m
}
