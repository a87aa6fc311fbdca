// FILE: lixenwraith/monitor/breadcrumb.go
package monitor

import (
	"fmt"
	"sync"
	"time"
)

// Breadcrumb is a short, timestamped engine event
type Breadcrumb struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
}

// Breadcrumbs is a fixed-size ring of recent events; the oldest entry is evicted first
type Breadcrumbs struct {
	mu    sync.Mutex
	buf   []Breadcrumb
	start int
	n     int
}

// NewBreadcrumbs creates a ring holding at most limit entries
func NewBreadcrumbs(limit int) *Breadcrumbs {
	if limit < 1 {
		limit = 1
	}
	return &Breadcrumbs{buf: make([]Breadcrumb, limit)}
}

// Add appends an event
func (b *Breadcrumbs) Add(now time.Time, event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.n) % len(b.buf)
	b.buf[idx] = Breadcrumb{Time: now, Event: event}
	if b.n < len(b.buf) {
		b.n++
	} else {
		b.start = (b.start + 1) % len(b.buf)
	}
}

// Addf appends a formatted event
func (b *Breadcrumbs) Addf(now time.Time, format string, args ...any) {
	b.Add(now, fmt.Sprintf(format, args...))
}

// Snapshot returns up to limit newest entries, oldest first; limit <= 0 returns all
func (b *Breadcrumbs) Snapshot(limit int) []Breadcrumb {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > b.n {
		limit = b.n
	}
	out := make([]Breadcrumb, 0, limit)
	for i := b.n - limit; i < b.n; i++ {
		out = append(out, b.buf[(b.start+i)%len(b.buf)])
	}
	return out
}

// Len returns the number of stored entries
func (b *Breadcrumbs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Cap returns the maximum number of entries
func (b *Breadcrumbs) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Resize changes the capacity, keeping the newest entries
func (b *Breadcrumbs) Resize(limit int) {
	if limit < 1 {
		limit = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit == len(b.buf) {
		return
	}

	keep := b.n
	if keep > limit {
		keep = limit
	}
	next := make([]Breadcrumb, limit)
	for i := 0; i < keep; i++ {
		next[i] = b.buf[(b.start+b.n-keep+i)%len(b.buf)]
	}
	b.buf, b.start, b.n = next, 0, keep
}
