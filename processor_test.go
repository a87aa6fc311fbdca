// FILE: lixenwraith/monitor/processor_test.go
package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/monitor/formatter"
	"github.com/lixenwraith/monitor/sanitizer"
)

func TestWebhookBody(t *testing.T) {
	f := formatter.New(sanitizer.New())
	body := webhookBody(f, "log", LogRecord{
		Time:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:    LevelError,
		Category: "host",
		Message:  `disk "C" full`,
		Fields:   map[string]any{"free": 0},
	})

	assert.JSONEq(t, `{
		"type": "log",
		"entry": {
			"timestamp": "2026-03-01T12:00:00Z",
			"level": "ERROR",
			"category": "host",
			"message": "disk \"C\" full",
			"fields": {"free": 0}
		}
	}`, string(body))
}

func TestWriteFaultTransitions(t *testing.T) {
	e := New(&testHost{})

	e.onWriteError(errors.New("disk full"))
	e.onWriteError(errors.New("disk full"))
	assert.True(t, e.state.WriterFault.Load())
	assert.Equal(t, uint64(2), e.state.TotalWriteErrors.Load())

	// Only the first failure of a streak leaves a breadcrumb
	crumbs := e.Breadcrumbs(0)
	require.Len(t, crumbs, 1)
	assert.Equal(t, "write failed, degraded: disk full", crumbs[0].Event)

	e.onWriteOK(nil, queueItem{kind: kindInternal})
	assert.False(t, e.state.WriterFault.Load())
	assert.Equal(t, uint64(1), e.state.TotalWritten.Load())
	assert.Equal(t, "write recovered", e.Breadcrumbs(1)[0].Event)

	e.onWriteOK(nil, queueItem{kind: kindInternal})
	assert.Len(t, e.Breadcrumbs(0), 2)
}

// Internal records never count as host activity
func TestInternalRecordsDoNotTouchWatchdog(t *testing.T) {
	cfg := testConfig(t)
	cfg.WatchdogIntervalSec = 1
	cfg.WatchdogMultiplier = 1
	cfg.WatchdogMissThreshold = 1
	e, _, mock := createTestEngine(t, cfg)
	require.NoError(t, e.Flush(time.Second))

	mock.Add(2 * time.Second)
	e.tick(currentRun(e), mock.Now())
	require.True(t, e.watchdog.Degraded())

	// The degraded notice itself is written without recovering
	waitForLine(t, e, "consecutive misses")
	assert.True(t, e.watchdog.Degraded())
	assert.Equal(t, HealthDegraded, e.Health())
}

func TestKeepAliveTouchesWatchdog(t *testing.T) {
	cfg := testConfig(t)
	cfg.HeartbeatSec = 3
	cfg.WatchdogIntervalSec = 1
	cfg.WatchdogMultiplier = 1
	cfg.WatchdogMissThreshold = 1
	e, _, mock := createTestEngine(t, cfg)

	mock.Add(2 * time.Second)
	e.tick(currentRun(e), mock.Now())
	require.True(t, e.watchdog.Degraded())

	mock.Add(time.Second)
	e.tick(currentRun(e), mock.Now())
	waitForLine(t, e, "[watchdog] activity resumed")
	assert.False(t, e.watchdog.Degraded())
}
