// FILE: lixenwraith/monitor/compat/hub.go
package compat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/monitor"
)

// Hub is an in-process host log source. Adapters publish records into it and
// every registered sink receives them on the publishing goroutine.
type Hub struct {
	mu     sync.RWMutex
	sinks  []monitor.LogSink
	refuse error
	now    func() time.Time
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{now: time.Now}
}

// Register adds a sink. Registering the same sink twice is an error.
func (h *Hub) Register(s monitor.LogSink) error {
	if s == nil {
		return errors.New("monitor/compat: sink cannot be nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refuse != nil {
		return fmt.Errorf("%w: %w", monitor.ErrHostRefused, h.refuse)
	}
	for _, existing := range h.sinks {
		if existing == s {
			return errors.New("monitor/compat: sink already registered")
		}
	}
	h.sinks = append(h.sinks, s)
	return nil
}

// Unregister removes a sink; removing an unknown sink is an error
func (h *Hub) Unregister(s monitor.LogSink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.sinks {
		if existing == s {
			h.sinks = append(h.sinks[:i], h.sinks[i+1:]...)
			return nil
		}
	}
	return errors.New("monitor/compat: sink not registered")
}

// Refuse makes later registrations fail with err; nil accepts again
func (h *Hub) Refuse(err error) {
	h.mu.Lock()
	h.refuse = err
	h.mu.Unlock()
}

// Sinks returns the number of registered sinks
func (h *Hub) Sinks() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// Emit delivers rec to every registered sink
func (h *Hub) Emit(rec monitor.LogRecord) {
	if rec.Time.IsZero() {
		rec.Time = h.now()
	}
	h.mu.RLock()
	sinks := make([]monitor.LogSink, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.RUnlock()

	for _, s := range sinks {
		s.HandleRecord(rec)
	}
}

// Log emits a record built from a message and alternating key/value pairs
func (h *Hub) Log(level int64, category, msg string, kv ...any) {
	h.Emit(monitor.LogRecord{
		Level:    level,
		Category: category,
		Message:  msg,
		Fields:   fieldsOf(kv),
	})
}

// fieldsOf pairs keys and values; a dangling value is stored under "!BADKEY"
func fieldsOf(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields["!BADKEY"] = kv[i]
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return fields
}
