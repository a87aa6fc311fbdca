// FILE: lixenwraith/monitor/watchdog.go
package monitor

import (
	"sync"
	"time"
)

// Transition is the outcome of a watchdog evaluation
type Transition int

const (
	TransitionNone Transition = iota
	TransitionMiss
	TransitionDegraded
	TransitionRecovered
)

// HeartbeatStatus is the watchdog view exposed to status queries
type HeartbeatStatus struct {
	Status       string        `json:"status"`
	Enabled      bool          `json:"enabled"`
	LastActivity time.Time     `json:"last_activity"`
	Interval     time.Duration `json:"interval"`
	Multiplier   float64       `json:"multiplier"`
	Misses       int64         `json:"misses"`
	Threshold    int64         `json:"threshold"`
}

// CheckResult describes one watchdog tick
type CheckResult struct {
	Transition Transition
	Misses     int64
	Gap        time.Duration
}

// Watchdog detects stalls by comparing the last confirmed activity with the
// expected interval. It never stops anything; it only reports degraded.
type Watchdog struct {
	mu           sync.Mutex
	enabled      bool
	interval     time.Duration
	multiplier   float64
	threshold    int64
	lastActivity time.Time
	lastCheck    time.Time
	misses       int64
	degraded     bool
	running      bool
}

// NewWatchdog creates a stopped watchdog
func NewWatchdog(interval time.Duration, multiplier float64, threshold int64) *Watchdog {
	w := &Watchdog{}
	w.Configure(true, interval, multiplier, threshold)
	return w
}

// Configure changes the parameters; misses counted so far are kept
func (w *Watchdog) Configure(enabled bool, interval time.Duration, multiplier float64, threshold int64) {
	if multiplier < 1 {
		multiplier = 1
	}
	if threshold < 1 {
		threshold = 1
	}
	w.mu.Lock()
	w.enabled = enabled
	w.interval = interval
	w.multiplier = multiplier
	w.threshold = threshold
	w.mu.Unlock()
}

// Start resets the counters and begins supervision at now
func (w *Watchdog) Start(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastActivity = now
	w.lastCheck = now
	w.misses = 0
	w.degraded = false
	w.running = true
}

// Stop ends supervision
func (w *Watchdog) Stop() {
	w.mu.Lock()
	w.running = false
	w.degraded = false
	w.misses = 0
	w.mu.Unlock()
}

// Touch confirms activity, resetting misses and clearing degraded
func (w *Watchdog) Touch(now time.Time) Transition {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.After(w.lastActivity) {
		w.lastActivity = now
	}
	w.misses = 0
	if w.degraded {
		w.degraded = false
		return TransitionRecovered
	}
	return TransitionNone
}

// Check evaluates liveness at most once per interval
func (w *Watchdog) Check(now time.Time) CheckResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running || !w.enabled || w.interval <= 0 {
		return CheckResult{}
	}

	// Clock moved backward; restart the check cadence from here
	if now.Before(w.lastCheck) {
		w.lastCheck = now
		if now.Before(w.lastActivity) {
			w.lastActivity = now
		}
		return CheckResult{Misses: w.misses}
	}
	if now.Sub(w.lastCheck) < w.interval {
		return CheckResult{Misses: w.misses}
	}
	w.lastCheck = now

	gap := now.Sub(w.lastActivity)
	limit := time.Duration(float64(w.interval) * w.multiplier)
	if gap <= limit {
		return CheckResult{Misses: w.misses, Gap: gap}
	}

	w.misses++
	res := CheckResult{Transition: TransitionMiss, Misses: w.misses, Gap: gap}
	if !w.degraded && w.misses >= w.threshold {
		w.degraded = true
		res.Transition = TransitionDegraded
	}
	return res
}

// Degraded reports whether the miss threshold has been reached
func (w *Watchdog) Degraded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.degraded
}

// Status returns the current watchdog view
func (w *Watchdog) Status() HeartbeatStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := HealthHealthy
	switch {
	case !w.running:
		status = HealthStopped
	case w.degraded:
		status = HealthDegraded
	}
	return HeartbeatStatus{
		Status:       status,
		Enabled:      w.enabled,
		LastActivity: w.lastActivity,
		Interval:     w.interval,
		Multiplier:   w.multiplier,
		Misses:       w.misses,
		Threshold:    w.threshold,
	}
}
