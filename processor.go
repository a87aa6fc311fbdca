// FILE: lixenwraith/monitor/processor.go
package monitor

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/lixenwraith/monitor/formatter"
	"github.com/lixenwraith/monitor/sanitizer"
)

// processRecords is the writer task. It owns the session writer for the run and
// exits when the queue is closed and drained, or when the run is aborted.
func (e *Engine) processRecords(r *run) {
	defer close(r.writerDone)

	payload := formatter.New(sanitizer.New())

	for item := range r.queue {
		if r.aborted.Load() || r.writer.Released() {
			return
		}

		if item.kind == kindFlush {
			if err := r.writer.Sync(); err != nil {
				e.onWriteError(err)
			}
			close(item.done)
			continue
		}

		err := r.writer.Write(item.rec)
		r.rotation.Store(r.writer.RotationState())
		if err != nil {
			e.onWriteError(err)
		} else {
			e.onWriteOK(r, item)
		}

		if hook := r.hook.Load(); hook != nil {
			event := item.event
			if event == "" && item.kind == kindRecord && item.rec.Level >= e.route.Load().webhookLevel {
				event = "log"
			}
			if event != "" {
				if !hook.enqueue(webhookBody(payload, event, item.rec)) {
					e.state.WebhookDropped.Add(1)
				}
			}
		}
	}

	if err := r.writer.Sync(); err != nil && !r.writer.Released() {
		e.onWriteError(err)
	}
}

// onWriteError records an I/O failure; the first failure of a streak flips degraded
func (e *Engine) onWriteError(err error) {
	e.state.TotalWriteErrors.Add(1)
	if e.state.WriterFault.CompareAndSwap(false, true) {
		e.crumb("write failed, degraded: %v", err)
		e.logger.Warn("monitor write failed", zap.Error(err))
	}
}

// onWriteOK clears a write fault and confirms activity to the watchdog
func (e *Engine) onWriteOK(r *run, item queueItem) {
	e.state.TotalWritten.Add(1)
	if e.state.WriterFault.CompareAndSwap(true, false) {
		e.crumb("write recovered")
		e.logger.Info("monitor write recovered")
	}

	if item.kind != kindRecord && item.kind != kindKeepAlive {
		return
	}
	now := e.clock.Now()
	if e.watchdog.Touch(now) == TransitionRecovered {
		e.crumb("watchdog recovered")
		e.enqueue(r, queueItem{kind: kindInternal, rec: LogRecord{
			Time:     now,
			Level:    LevelInfo,
			Category: CategoryWatchdog,
			Message:  "[watchdog] activity resumed",
		}})
	}
}

// webhookBody wraps the JSON rendering of rec in a typed event object
func webhookBody(f *formatter.Formatter, event string, rec LogRecord) []byte {
	entry := bytes.TrimRight(f.JSON(rec.Time, rec.Level, rec.Category, rec.Message, rec.Fields), "\n")
	body := make([]byte, 0, len(entry)+len(event)+24)
	body = append(body, `{"type":"`...)
	body = append(body, event...)
	body = append(body, `","entry":`...)
	body = append(body, entry...)
	body = append(body, '}')
	return body
}
