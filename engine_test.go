// FILE: lixenwraith/monitor/engine_test.go
package monitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// testHost is a minimal host log source
type testHost struct {
	mu     sync.Mutex
	sinks  []LogSink
	refuse error
}

func (h *testHost) Register(s LogSink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refuse != nil {
		return fmt.Errorf("%w: %w", ErrHostRefused, h.refuse)
	}
	for _, existing := range h.sinks {
		if existing == s {
			return errors.New("already registered")
		}
	}
	h.sinks = append(h.sinks, s)
	return nil
}

func (h *testHost) Unregister(s LogSink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.sinks {
		if existing == s {
			h.sinks = append(h.sinks[:i], h.sinks[i+1:]...)
			return nil
		}
	}
	return errors.New("not registered")
}

func (h *testHost) registered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// emit delivers a record the way a host logging subsystem would
func (h *testHost) emit(level int64, msg string) {
	h.mu.Lock()
	sinks := append([]LogSink(nil), h.sinks...)
	h.mu.Unlock()
	for _, s := range sinks {
		s.HandleRecord(LogRecord{Level: level, Category: CategoryHost, Message: msg})
	}
}

// testConfig returns a configuration writing into a fresh temp directory
func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.Name = "test"
	cfg.HeartbeatSec = 0
	cfg.ErrorsFile = false
	cfg.BufferSize = 256
	cfg.StopTimeoutMs = 2000
	return cfg
}

// createTestEngine starts an engine on a mock clock
func createTestEngine(t *testing.T, cfg *Config, opts ...Option) (*Engine, *testHost, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	host := &testHost{}

	e := New(host, append([]Option{WithClock(mock)}, opts...)...)
	require.NoError(t, e.Start(cfg))
	t.Cleanup(func() { _ = e.Stop() })
	return e, host, mock
}

// currentRun returns the active run for driving ticks directly
func currentRun(e *Engine) *run {
	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	return e.cur
}

// readLines returns the lines of a file, or nil if it does not exist
func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// countContaining counts lines holding substr
func countContaining(lines []string, substr string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

// waitForLine flushes until a line holding substr is in the session log
func waitForLine(t *testing.T, e *Engine, substr string) {
	t.Helper()
	sess, ok := e.Session()
	require.True(t, ok)
	require.Eventually(t, func() bool {
		_ = e.Flush(time.Second)
		return countContaining(readLines(t, sess.LogPath), substr) > 0
	}, 3*time.Second, 20*time.Millisecond, "no line containing %q", substr)
}

func hasCrumb(e *Engine, substr string) bool {
	for _, b := range e.Breadcrumbs(0) {
		if strings.Contains(b.Event, substr) {
			return true
		}
	}
	return false
}

// faultyFS wraps real files with switchable write failures and stalls
type faultyFS struct {
	fail  atomic.Bool
	block atomic.Bool
	gate  chan struct{}
}

func newFaultyFS() *faultyFS {
	return &faultyFS{gate: make(chan struct{})}
}

func (fs *faultyFS) open(path string) (LogFile, error) {
	f, err := defaultOpen(path)
	if err != nil {
		return nil, err
	}
	return &faultyFile{LogFile: f, fs: fs}, nil
}

type faultyFile struct {
	LogFile
	fs *faultyFS
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.fs.block.Load() {
		<-f.fs.gate
	}
	if f.fs.fail.Load() {
		return 0, errors.New("no space left on device")
	}
	return f.LogFile.Write(p)
}

func TestEngineStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	e, host, _ := createTestEngine(t, cfg)

	assert.Equal(t, "running", e.State())
	assert.Equal(t, HealthHealthy, e.Health())
	assert.Equal(t, 1, host.registered())

	sess, ok := e.Session()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cfg.Directory, sess.ID+".log"), sess.LogPath)

	host.emit(LevelInfo, "hello from the host")
	require.NoError(t, e.Flush(time.Second))

	require.NoError(t, e.Stop())
	assert.Equal(t, "stopped", e.State())
	assert.Equal(t, HealthStopped, e.Health())
	assert.Equal(t, 0, host.registered())

	lines := readLines(t, sess.LogPath)
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "monitor session "+sess.ID+" started")
	assert.Equal(t, 1, countContaining(lines, "[INFO] [host] hello from the host"))
	assert.Contains(t, lines[len(lines)-1], "monitor session stopped")

	// Stop is idempotent
	assert.NoError(t, e.Stop())

	// Records after stop are absorbed
	e.HandleRecord(LogRecord{Level: LevelError, Message: "late"})
	assert.Equal(t, 0, countContaining(readLines(t, sess.LogPath), "late"))
	assert.Equal(t, ErrNotRunning, e.Flush(time.Second))
}

func TestEngineStartValidation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Directory = filepath.Join(cfg.Directory, "never")
	cfg.Level = "loud"

	host := &testHost{}
	e := New(host)
	err := e.Start(cfg)
	require.Error(t, err)

	var startErr *StartupError
	require.ErrorAs(t, err, &startErr)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "level", valErr.Key)

	assert.Equal(t, "stopped", e.State())
	assert.Equal(t, 0, host.registered())
	_, statErr := os.Stat(cfg.Directory)
	assert.True(t, os.IsNotExist(statErr), "no side effects before validation passes")
}

func TestEngineStartHostRefused(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig(t)
	host := &testHost{refuse: errors.New("handler slots exhausted")}
	e := New(host, WithClock(clock.NewMock()))

	err := e.Start(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHostRefused)
	assert.Equal(t, "stopped", e.State())
	assert.True(t, hasCrumb(e, "start failed"))

	// The session was released, so a later start succeeds
	host.refuse = nil
	require.NoError(t, e.Start(cfg))
	require.NoError(t, e.Stop())
}

func TestEngineNilHost(t *testing.T) {
	e := New(nil)
	err := e.Start(testConfig(t))
	var startErr *StartupError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "no host log source", startErr.Reason)
}

func TestEngineStartTwice(t *testing.T) {
	e, _, _ := createTestEngine(t, testConfig(t))
	err := e.Start(testConfig(t))
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, "running", e.State())
}

func TestEngineLevelFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Level = "warn"
	e, host, _ := createTestEngine(t, cfg)

	host.emit(LevelDebug, "debug detail")
	host.emit(LevelInfo, "info detail")
	host.emit(LevelWarn, "warn detail")
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 0, countContaining(lines, "debug detail"))
	assert.Equal(t, 0, countContaining(lines, "info detail"))
	assert.Equal(t, 1, countContaining(lines, "[WARN] [host] warn detail"))

	st := e.Stats()
	assert.Equal(t, uint64(2), st.Filtered)
	assert.Equal(t, uint64(1), st.Routed)
}

// Ten identical records inside the window produce one line and one summary
func TestEngineCoalescing(t *testing.T) {
	cfg := testConfig(t)
	cfg.CoalesceWindowSec = 3
	e, host, mock := createTestEngine(t, cfg)

	for i := 0; i < 10; i++ {
		host.emit(LevelWarn, "Qt warning: X")
		mock.Add(200 * time.Millisecond)
	}
	assert.Equal(t, 1, e.Stats().OpenBuckets)

	mock.Add(3100 * time.Millisecond)
	e.tick(currentRun(e), mock.Now())
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	passed := 0
	for _, l := range lines {
		if strings.HasSuffix(l, "[WARN] [host] Qt warning: X") {
			passed++
		}
	}
	assert.Equal(t, 1, passed)
	require.Equal(t, 1, countContaining(lines, "9 duplicate messages suppressed"))
	for _, l := range lines {
		if strings.Contains(l, "duplicate messages suppressed") {
			assert.Contains(t, l, "for [WARN] [host] Qt warning: X between")
			assert.Contains(t, l, "coalesced=9")
		}
	}

	st := e.Stats()
	assert.Equal(t, uint64(9), st.Suppressed)
	assert.Equal(t, uint64(1), st.Summaries)
	assert.Equal(t, 0, st.OpenBuckets)
}

func TestEngineStopFlushesBuckets(t *testing.T) {
	e, host, _ := createTestEngine(t, testConfig(t))

	for i := 0; i < 4; i++ {
		host.emit(LevelError, "connection reset")
	}
	sess, _ := e.Session()
	require.NoError(t, e.Stop())

	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 1, countContaining(lines, "3 duplicate messages suppressed"))
}

func TestEngineNoiseAndScrub(t *testing.T) {
	e, host, _ := createTestEngine(t, testConfig(t))

	host.emit(LevelWarn, "libpng warning: iCCP: known incorrect sRGB profile")
	host.emit(LevelError, `cannot open /home/alice/project/a.txt or C:\Users\Bob\x.ini from 192.168.1.20`)
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 0, countContaining(lines, "libpng"))
	assert.Equal(t, uint64(1), e.Stats().Muted)

	assert.Equal(t, 1, countContaining(lines, "/home/<redacted>/project/a.txt"))
	assert.Equal(t, 1, countContaining(lines, `C:\Users\<redacted>\x.ini`))
	assert.Equal(t, 1, countContaining(lines, "from <ip>"))
	assert.Equal(t, 0, countContaining(lines, "alice"))
}

func TestEngineNoiseWithoutCoalescing(t *testing.T) {
	cfg := testConfig(t)
	cfg.CoalesceEnabled = false
	e, host, _ := createTestEngine(t, cfg)

	host.emit(LevelWarn, "libpng warning: again")
	host.emit(LevelInfo, "same")
	host.emit(LevelInfo, "same")
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 0, countContaining(lines, "libpng"))
	assert.Equal(t, 2, countContaining(lines, "[INFO] [host] same"))
}

func TestEngineNoiseNotRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitPerSec = 1
	e, host, _ := createTestEngine(t, cfg)

	for i := 0; i < 5; i++ {
		host.emit(LevelInfo, "libpng warning: iCCP")
	}
	require.NoError(t, e.Flush(time.Second))

	st := e.Stats()
	assert.Equal(t, uint64(5), st.Muted)
	assert.Equal(t, uint64(0), st.RateLimited)
	sess, _ := e.Session()
	assert.Equal(t, 0, countContaining(readLines(t, sess.LogPath), "libpng"))
}

func TestEngineRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.CoalesceEnabled = false
	cfg.RateLimitPerSec = 2
	e, host, mock := createTestEngine(t, cfg)

	for i := 0; i < 5; i++ {
		host.emit(LevelInfo, "flood")
	}
	mock.Add(1100 * time.Millisecond)
	host.emit(LevelInfo, "flood")
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	assert.Equal(t, 3, countContaining(readLines(t, sess.LogPath), "[INFO] [host] flood"))
	assert.Equal(t, uint64(3), e.Stats().RateLimited)
}

// Warnings and errors bypass the per message cap
func TestEngineRateLimitKeepsErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.CoalesceEnabled = false
	cfg.RateLimitPerSec = 2
	e, host, _ := createTestEngine(t, cfg)

	for i := 0; i < 5; i++ {
		host.emit(LevelError, "disk failure")
		host.emit(LevelWarn, "retrying")
	}
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 5, countContaining(lines, "[ERROR] [host] disk failure"))
	assert.Equal(t, 5, countContaining(lines, "[WARN] [host] retrying"))
	assert.Equal(t, uint64(0), e.Stats().RateLimited)
}

func TestEngineErrorsFileAndJSONL(t *testing.T) {
	cfg := testConfig(t)
	cfg.ErrorsFile = true
	cfg.JSONLEnabled = true
	e, host, _ := createTestEngine(t, cfg)

	host.emit(LevelInfo, "routine")
	e.HandleRecord(LogRecord{Level: LevelError, Category: "db", Message: "query failed", Fields: map[string]any{"code": 7}})
	require.NoError(t, e.Flush(time.Second))

	sess, _ := e.Session()
	errLines := readLines(t, sess.ErrorPath)
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], "[ERROR] [db] query failed code=7")

	jsonLines := readLines(t, sess.JSONPath)
	assert.Equal(t, 1, countContaining(jsonLines, `"message":"routine"`))
	assert.Equal(t, 1, countContaining(jsonLines, `"fields":{"code":7}`))

	manifest, err := ReadManifest(cfg.Directory)
	require.NoError(t, err)
	assert.Equal(t, sess.LogPath, manifest["FULL"])
	assert.Equal(t, sess.ErrorPath, manifest["ERRORS"])
	assert.Equal(t, sess.JSONPath, manifest["JSON"])
}

// Two stop/start cycles in one process append to one file
func TestEngineSingleFileAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	e, host, _ := createTestEngine(t, cfg)
	first, _ := e.Session()

	for cycle := 0; cycle < 3; cycle++ {
		if cycle > 0 {
			require.NoError(t, e.Start(cfg))
		}
		for i := 0; i < 3; i++ {
			host.emit(LevelInfo, fmt.Sprintf("cycle %d record %d", cycle, i))
		}
		require.NoError(t, e.Stop())

		sess, _ := e.Session()
		assert.Equal(t, first.ID, sess.ID)
		assert.Equal(t, first.LogPath, sess.LogPath)
	}

	logs, err := filepath.Glob(filepath.Join(cfg.Directory, "*.log"))
	require.NoError(t, err)
	assert.Equal(t, []string{first.LogPath}, logs)

	// Records appear in order with none missing
	var seen []string
	for _, l := range readLines(t, first.LogPath) {
		if i := strings.Index(l, "cycle "); i >= 0 {
			seen = append(seen, l[i:])
		}
	}
	var expected []string
	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 3; i++ {
			expected = append(expected, fmt.Sprintf("cycle %d record %d", cycle, i))
		}
	}
	assert.Equal(t, expected, seen)
}

func TestEngineNewFileWithoutSingleFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.SingleFileSession = false
	e, _, _ := createTestEngine(t, cfg)
	first, _ := e.Session()

	require.NoError(t, e.Stop())
	require.NoError(t, e.Start(cfg))
	second, _ := e.Session()

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.LogPath, second.LogPath)
}

// A failed write degrades health; the next successful write recovers it
func TestEngineWriteFaultDegrades(t *testing.T) {
	fs := newFaultyFS()
	e, host, _ := createTestEngine(t, testConfig(t), WithFileOpener(fs.open))

	for i := 1; i <= 4; i++ {
		host.emit(LevelInfo, fmt.Sprintf("write %d", i))
	}
	require.NoError(t, e.Flush(time.Second))
	assert.Equal(t, HealthHealthy, e.Health())

	fs.fail.Store(true)
	host.emit(LevelInfo, "write 5")
	require.NoError(t, e.Flush(time.Second))

	assert.Equal(t, HealthDegraded, e.Health())
	assert.True(t, hasCrumb(e, "write failed"))
	assert.Equal(t, uint64(1), e.Stats().WriteErrors)
	assert.Equal(t, "running", e.State())

	fs.fail.Store(false)
	host.emit(LevelInfo, "write 6")
	require.NoError(t, e.Flush(time.Second))

	assert.Equal(t, HealthHealthy, e.Health())
	assert.True(t, hasCrumb(e, "write recovered"))

	sess, _ := e.Session()
	lines := readLines(t, sess.LogPath)
	assert.Equal(t, 0, countContaining(lines, "write 5"))
	assert.Equal(t, 1, countContaining(lines, "write 6"))
}

func TestEngineQueueOverflow(t *testing.T) {
	fs := newFaultyFS()
	cfg := testConfig(t)
	cfg.BufferSize = 4
	cfg.CoalesceEnabled = false
	e, host, _ := createTestEngine(t, cfg, WithFileOpener(fs.open))
	require.NoError(t, e.Flush(time.Second))

	fs.block.Store(true)
	start := time.Now()
	for i := 0; i < 50; i++ {
		host.emit(LevelInfo, fmt.Sprintf("burst %d", i))
	}
	assert.Less(t, time.Since(start), time.Second, "routing never blocks on a stalled writer")
	assert.Greater(t, e.Stats().Dropped, uint64(0))

	fs.block.Store(false)
	close(fs.gate)
	require.NoError(t, e.Flush(time.Second))

	host.emit(LevelInfo, "after burst")
	waitForLine(t, e, "records were dropped, writer queue full")
}

func TestEngineStopTimeoutForceCloses(t *testing.T) {
	fs := newFaultyFS()
	cfg := testConfig(t)
	cfg.StopTimeoutMs = 100
	e, host, _ := createTestEngine(t, cfg, WithFileOpener(fs.open))
	require.NoError(t, e.Flush(time.Second))

	fs.block.Store(true)
	host.emit(LevelInfo, "stuck")

	start := time.Now()
	err := e.Stop()
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "stopped", e.State())
	assert.True(t, hasCrumb(e, "force-closed"))

	// Let the stalled writer finish so it can exit
	close(fs.gate)
	r := currentRun(e)
	select {
	case <-r.writerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("writer task did not exit")
	}

	// The session is reusable after a forced close
	fs.block.Store(false)
	require.NoError(t, e.Start(cfg))
}

func TestEngineReload(t *testing.T) {
	cfg := testConfig(t)
	e, host, _ := createTestEngine(t, cfg)
	first, _ := e.Session()

	t.Run("routing in place", func(t *testing.T) {
		next := cfg.Clone()
		next.Level = "error"
		require.NoError(t, e.Reload(next))

		sess, _ := e.Session()
		assert.Equal(t, first.ID, sess.ID)
		assert.Equal(t, "error", e.Config().Level)

		host.emit(LevelWarn, "now filtered")
		require.NoError(t, e.Flush(time.Second))
		assert.Equal(t, 0, countContaining(readLines(t, sess.LogPath), "now filtered"))
	})

	t.Run("file layout restarts", func(t *testing.T) {
		next := e.Config()
		next.Name = "renamed"
		require.NoError(t, e.Reload(next))

		sess, _ := e.Session()
		assert.NotEqual(t, first.LogPath, sess.LogPath)
		assert.True(t, strings.HasPrefix(filepath.Base(sess.LogPath), "renamed_"))
		assert.Equal(t, "running", e.State())
		assert.Equal(t, 1, host.registered())
	})

	t.Run("invalid", func(t *testing.T) {
		next := e.Config()
		next.BufferSize = 0
		var valErr *ValidationError
		require.ErrorAs(t, e.Reload(next), &valErr)
		assert.Equal(t, "buffer_size", valErr.Key)
	})

	t.Run("stopped", func(t *testing.T) {
		require.NoError(t, e.Stop())
		assert.ErrorIs(t, e.Reload(cfg), ErrNotRunning)
	})
}

func TestEngineWatchdog(t *testing.T) {
	cfg := testConfig(t)
	cfg.WatchdogEnabled = true
	cfg.WatchdogIntervalSec = 1
	cfg.WatchdogMultiplier = 2
	cfg.WatchdogMissThreshold = 2
	e, host, mock := createTestEngine(t, cfg)

	for i := 0; i < 6; i++ {
		mock.Add(time.Second)
		e.tick(currentRun(e), mock.Now())
	}

	assert.Equal(t, HealthDegraded, e.Health())
	assert.True(t, hasCrumb(e, "watchdog miss"))
	assert.True(t, hasCrumb(e, "watchdog degraded"))
	assert.Equal(t, HealthDegraded, e.Status().Heartbeat.Status)
	waitForLine(t, e, "[WARN] [monitor.watchdog] [watchdog] no activity for")

	host.emit(LevelInfo, "host is alive")
	waitForLine(t, e, "[watchdog] activity resumed")
	assert.Equal(t, HealthHealthy, e.Health())
	assert.True(t, hasCrumb(e, "watchdog recovered"))
}

func TestEngineKeepAlive(t *testing.T) {
	cfg := testConfig(t)
	cfg.HeartbeatSec = 1
	e, _, mock := createTestEngine(t, cfg)

	mock.Add(time.Second)
	e.tick(currentRun(e), mock.Now())

	waitForLine(t, e, "[INFO] [monitor.heartbeat] [HB] mem=")
	assert.GreaterOrEqual(t, e.Stats().Heartbeats, uint64(1))

	sess, _ := e.Session()
	for _, l := range readLines(t, sess.LogPath) {
		if strings.Contains(l, "[HB]") {
			assert.Contains(t, l, "goroutines=")
			assert.Contains(t, l, "sequence=")
			assert.Contains(t, l, "uptime=")
		}
	}
}

func TestEngineRotationBreadcrumbs(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxLines = 10
	e, host, _ := createTestEngine(t, cfg)

	for i := 0; i < 25; i++ {
		host.emit(LevelInfo, fmt.Sprintf("line %d", i))
	}
	require.NoError(t, e.Flush(time.Second))

	assert.GreaterOrEqual(t, e.Stats().Rotations, uint64(2))
	assert.True(t, hasCrumb(e, "rotated "))
	st := e.Status()
	assert.GreaterOrEqual(t, st.Rotation.Rotations, int64(2))
	assert.Less(t, st.Rotation.Lines, int64(10))
}

func TestEngineStatus(t *testing.T) {
	e, host, _ := createTestEngine(t, testConfig(t))
	host.emit(LevelInfo, "status check")
	require.NoError(t, e.Flush(time.Second))

	st := e.Status()
	assert.Equal(t, "running", st.State)
	assert.Equal(t, HealthHealthy, st.Health)
	require.NotNil(t, st.Session)
	assert.NotEmpty(t, st.Session.ID)
	assert.Equal(t, HealthHealthy, st.Heartbeat.Status)
	assert.Equal(t, uint64(1), st.Stats.Routed)
	assert.GreaterOrEqual(t, st.Stats.Written, uint64(1))
	require.NotEmpty(t, st.Breadcrumbs)
	assert.Contains(t, st.Breadcrumbs[len(st.Breadcrumbs)-1].Event, "started session")

	recent := e.Breadcrumbs(1)
	require.Len(t, recent, 1)
	assert.Equal(t, st.Breadcrumbs[len(st.Breadcrumbs)-1], recent[0])
}

func TestEngineConcurrentRouting(t *testing.T) {
	cfg := testConfig(t)
	cfg.BufferSize = 4096
	e, host, _ := createTestEngine(t, cfg)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				host.emit(LevelInfo, fmt.Sprintf("worker %d message %d", g, i))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, e.Flush(2*time.Second))

	sess, _ := e.Session()
	assert.Equal(t, 400, countContaining(readLines(t, sess.LogPath), "[INFO] [host] worker"))
	assert.Equal(t, uint64(0), e.Stats().Dropped)
}
