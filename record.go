// FILE: lixenwraith/monitor/record.go
package monitor

import (
	"fmt"
)

// HandleRecord routes one host record. It never blocks on I/O and never fails
// the caller: records arriving while the engine is not running, below the
// level threshold, muted, rate limited, duplicate or beyond the queue capacity are absorbed.
func (e *Engine) HandleRecord(rec LogRecord) {
	if e.state.get() != StateRunning {
		return
	}
	rt := e.route.Load()
	if rt == nil {
		return
	}
	if rec.Level < rt.minLevel {
		e.state.TotalFiltered.Add(1)
		return
	}

	now := e.clock.Now()
	if rec.Time.IsZero() {
		rec.Time = now
	}
	if rec.Category == "" {
		rec.Category = CategoryHost
	}
	if rt.scrub != nil {
		rec = scrubRecord(rec, rt)
	}
	e.state.TotalRouted.Add(1)

	e.routeMu.Lock()
	defer e.routeMu.Unlock()

	r := e.cur
	if r == nil || r.closed {
		e.state.TotalDropped.Add(1)
		return
	}
	if e.coalescer.Mute(rec.Message) {
		return
	}
	if !r.limiter.allow(rec, now) {
		return
	}

	out := []LogRecord{rec}
	if rt.coalesce {
		out = e.coalescer.Offer(rec, now)
	}

	for _, o := range out {
		e.enqueueLocked(r, queueItem{kind: kindRecord, rec: o})
	}
}

// scrubRecord redacts the message and string fields into a new record
func scrubRecord(rec LogRecord, rt *routing) LogRecord {
	rec.Message = rt.scrub.Sanitize(rec.Message)
	if len(rec.Fields) > 0 {
		fields := make(map[string]any, len(rec.Fields))
		for k, v := range rec.Fields {
			if s, ok := v.(string); ok {
				v = rt.scrub.Sanitize(s)
			}
			fields[k] = v
		}
		rec.Fields = fields
	}
	return rec
}

// enqueueLocked performs a non-blocking send to the writer queue.
// Caller holds routeMu.
func (e *Engine) enqueueLocked(r *run, item queueItem) bool {
	if r.closed {
		e.state.TotalDropped.Add(1)
		return false
	}

	select {
	case r.queue <- item:
	default:
		e.state.TotalDropped.Add(1)
		e.state.DroppedLogs.Add(1)
		return false
	}

	// Report drops once the queue accepts records again
	if item.kind == kindRecord {
		if dropped := e.state.DroppedLogs.Swap(0); dropped > 0 {
			report := queueItem{kind: kindInternal, rec: LogRecord{
				Time:     e.clock.Now(),
				Level:    LevelWarn,
				Category: CategoryMonitor,
				Message:  fmt.Sprintf("%d records were dropped, writer queue full", dropped),
				Fields:   map[string]any{"dropped_count": dropped},
			}}
			select {
			case r.queue <- report:
			default:
				// Restore the count for the next report
				e.state.DroppedLogs.Add(dropped)
			}
		}
	}
	return true
}

// enqueue is enqueueLocked for callers outside the routing path
func (e *Engine) enqueue(r *run, item queueItem) bool {
	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	return e.enqueueLocked(r, item)
}
