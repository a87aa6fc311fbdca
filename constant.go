// FILE: lixenwraith/monitor/constant.go
package monitor

import (
	"time"
)

// Log level constants
const (
	LevelDebug int64 = -4
	LevelInfo  int64 = 0
	LevelWarn  int64 = 4
	LevelError int64 = 8
)

// Categories used for records the engine produces itself
const (
	CategoryMonitor   = "monitor"
	CategoryHeartbeat = "monitor.heartbeat"
	CategoryWatchdog  = "monitor.watchdog"
	CategoryCoalesce  = "monitor.coalesce"
	CategoryHost      = "host"
)

// Engine states
const (
	StateStopped int32 = iota
	StateStarting
	StateRunning
	StateStopping
)

// Health values reported by Status
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthStopped  = "stopped"
)

// Coalescing
const (
	// Normalized message text is truncated to this many runes before keying
	maxKeyRunes = 512
)

// Storage
const (
	// Size multiplier for KB
	sizeMultiplier = 1024
	// Archive timestamp layout, sorts lexically in time order
	archiveTimeLayout = "060102_150405"
	// Manifest file written into the log directory on session open
	manifestName = "latest.txt"
)

// Timers
const (
	// Period of the shared background tick (coalesce sweep, watchdog, keep-alive)
	tickInterval = 500 * time.Millisecond
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Extra time granted to the writer after an aborted drain
	abortGrace = 100 * time.Millisecond
)
