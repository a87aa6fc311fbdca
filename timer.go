// FILE: lixenwraith/monitor/timer.go
package monitor

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// runTicker drives the periodic work of a run: coalesce sweeps, rate limiter
// pruning, watchdog checks and keep-alive records.
func (e *Engine) runTicker(r *run) {
	defer close(r.tickDone)

	ticker := e.clock.Ticker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.tickStop:
			return
		case <-ticker.C:
			e.tick(r, e.clock.Now())
		}
	}
}

// tick performs one round of periodic work at now
func (e *Engine) tick(r *run, now time.Time) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.routeMu.Lock()
	for _, s := range e.coalescer.Sweep(now) {
		e.enqueueLocked(r, queueItem{kind: kindRecord, rec: s})
	}
	r.limiter.prune(now)
	e.routeMu.Unlock()

	res := e.watchdog.Check(now)
	switch res.Transition {
	case TransitionMiss:
		e.crumb("watchdog miss %d, no activity for %s", res.Misses, res.Gap.Round(time.Millisecond))
	case TransitionDegraded:
		e.crumb("watchdog degraded after %d misses", res.Misses)
		e.logger.Warn("monitor watchdog degraded", zap.Int64("misses", res.Misses), zap.Duration("gap", res.Gap))
		e.enqueue(r, queueItem{
			kind:  kindInternal,
			event: "watchdog_degraded",
			rec: LogRecord{
				Time:     now,
				Level:    LevelWarn,
				Category: CategoryWatchdog,
				Message:  fmt.Sprintf("[watchdog] no activity for %s, %d consecutive misses", res.Gap.Round(time.Second), res.Misses),
				Fields:   map[string]any{"misses": res.Misses, "gap_ms": res.Gap.Milliseconds()},
			},
		})
	}

	interval := e.cfg.Load().HeartbeatInterval()
	if interval <= 0 {
		return
	}
	// Backward clock jumps restart the keep-alive cadence
	if now.Before(e.lastHeartbeat) {
		e.lastHeartbeat = now
		return
	}
	if now.Sub(e.lastHeartbeat) >= interval {
		e.lastHeartbeat = now
		e.enqueue(r, queueItem{kind: kindKeepAlive, rec: e.keepAliveRecord(r, now)})
	}
}
