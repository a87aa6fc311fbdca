// FILE: lixenwraith/monitor/coalesce.go
package monitor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/lixenwraith/monitor/formatter"
)

// summaryTimeLayout is used for the T1/T2 stamps of summary messages
const summaryTimeLayout = "15:04:05.000"

var urlQuery = regexp.MustCompile(`(https?://[^\s?#]+)\?[^\s#]*`)

// CoalesceKey groups structurally identical records
type CoalesceKey struct {
	Category string
	Level    int64
	Text     string
}

func (k CoalesceKey) String() string {
	return fmt.Sprintf("[%s] [%s] %s", formatter.LevelToString(k.Level), k.Category, k.Text)
}

// KeyOf derives the coalesce key of a record
func KeyOf(rec LogRecord) CoalesceKey {
	return CoalesceKey{
		Category: rec.Category,
		Level:    rec.Level,
		Text:     normalizeText(rec.Message),
	}
}

// normalizeText trims, drops URL query strings and truncates to maxKeyRunes
func normalizeText(msg string) string {
	msg = strings.TrimSpace(msg)
	if strings.Contains(msg, "http") {
		msg = urlQuery.ReplaceAllString(msg, "$1")
	}
	if utf8.RuneCountInString(msg) > maxKeyRunes {
		runes := []rune(msg)
		msg = string(runes[:maxKeyRunes])
	}
	return msg
}

// bucket is an open coalescing window for one key
type bucket struct {
	key   CoalesceKey
	first time.Time
	last  time.Time
	count int64
	rec   LogRecord
}

// Coalescer suppresses duplicate records arriving within a sliding window.
// Offer and Sweep may be called from different goroutines.
type Coalescer struct {
	mu      sync.Mutex
	window  time.Duration
	noise   []string
	buckets map[CoalesceKey]*bucket

	suppressed atomic.Uint64
	muted      atomic.Uint64
	summaries  atomic.Uint64
}

// NewCoalescer creates a coalescer with the given window and noise patterns
func NewCoalescer(window time.Duration, noise []string) *Coalescer {
	return &Coalescer{
		window:  window,
		noise:   append([]string(nil), noise...),
		buckets: make(map[CoalesceKey]*bucket),
	}
}

// SetWindow changes the window for subsequent checks
func (c *Coalescer) SetWindow(window time.Duration) {
	c.mu.Lock()
	c.window = window
	c.mu.Unlock()
}

// SetNoise replaces the muted pattern list
func (c *Coalescer) SetNoise(noise []string) {
	c.mu.Lock()
	c.noise = append([]string(nil), noise...)
	c.mu.Unlock()
}

// IsNoise reports whether a message matches a muted pattern
func (c *Coalescer) IsNoise(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isNoise(msg)
}

// Mute reports whether a message matches a muted pattern and counts it
func (c *Coalescer) Mute(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isNoise(msg) {
		return false
	}
	c.muted.Add(1)
	return true
}

func (c *Coalescer) isNoise(msg string) bool {
	for _, p := range c.noise {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// within treats a non-positive delta as inside the window
func (c *Coalescer) within(now, last time.Time) bool {
	d := now.Sub(last)
	return d <= 0 || d <= c.window
}

// Offer routes one record and returns what must be written, in order.
// Muted records return nothing. A duplicate inside the window is counted and
// returns nothing. A new key returns the record itself, preceded by the summary
// of an expired bucket for the same key if the sweep has not closed it yet.
func (c *Coalescer) Offer(rec LogRecord, now time.Time) []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isNoise(rec.Message) {
		c.muted.Add(1)
		return nil
	}

	key := KeyOf(rec)
	var out []LogRecord

	if b, ok := c.buckets[key]; ok {
		if c.within(now, b.last) {
			b.count++
			b.last = now
			c.suppressed.Add(1)
			return nil
		}
		delete(c.buckets, key)
		if s, ok := c.summary(b, now); ok {
			out = append(out, s)
		}
	}

	c.buckets[key] = &bucket{key: key, first: now, last: now, count: 1, rec: rec}
	return append(out, rec)
}

// Sweep closes buckets whose window has elapsed and returns their summaries
func (c *Coalescer) Sweep(now time.Time) []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close(now, false)
}

// Flush force-closes every open bucket
func (c *Coalescer) Flush(now time.Time) []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close(now, true)
}

// Open returns the number of open buckets
func (c *Coalescer) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// Suppressed returns the number of duplicates absorbed so far
func (c *Coalescer) Suppressed() uint64 { return c.suppressed.Load() }

// Muted returns the number of noise records dropped so far
func (c *Coalescer) Muted() uint64 { return c.muted.Load() }

// Summaries returns the number of summary records produced so far
func (c *Coalescer) Summaries() uint64 { return c.summaries.Load() }

func (c *Coalescer) close(now time.Time, all bool) []LogRecord {
	var closed []*bucket
	for key, b := range c.buckets {
		if all || !c.within(now, b.last) {
			closed = append(closed, b)
			delete(c.buckets, key)
		}
	}
	if len(closed) == 0 {
		return nil
	}

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].first.Before(closed[j].first)
	})

	var out []LogRecord
	for _, b := range closed {
		if s, ok := c.summary(b, now); ok {
			out = append(out, s)
		}
	}
	return out
}

// summary builds the occurrence record of a closed bucket, if it saw duplicates
func (c *Coalescer) summary(b *bucket, now time.Time) (LogRecord, bool) {
	if b.count <= 1 {
		return LogRecord{}, false
	}
	c.summaries.Add(1)
	dups := b.count - 1
	return LogRecord{
		Time:     now,
		Level:    b.key.Level,
		Category: b.key.Category,
		Message: fmt.Sprintf("%d duplicate messages suppressed for %s between %s and %s",
			dups, b.key, b.first.Format(summaryTimeLayout), b.last.Format(summaryTimeLayout)),
		Fields: map[string]any{
			"coalesced":  dups,
			"first_seen": b.first,
			"last_seen":  b.last,
		},
	}, true
}

// rateLimiter caps pass-through records per message text within one second.
// Warnings and errors are never limited. Callers serialize access.
type rateLimiter struct {
	limit   int
	hits    map[string][]time.Time
	dropped atomic.Uint64
}

func newRateLimiter(perSec int64) *rateLimiter {
	if perSec <= 0 {
		return nil
	}
	return &rateLimiter{limit: int(perSec), hits: make(map[string][]time.Time)}
}

// allow records a hit and reports whether it is within the limit
func (r *rateLimiter) allow(rec LogRecord, now time.Time) bool {
	if r == nil || rec.Level >= LevelWarn {
		return true
	}
	msg := rec.Message
	window := r.trim(r.hits[msg], now)
	window = append(window, now)
	r.hits[msg] = window
	if len(window) > r.limit {
		r.dropped.Add(1)
		return false
	}
	return true
}

// prune forgets messages with no hit in the last second
func (r *rateLimiter) prune(now time.Time) {
	if r == nil {
		return
	}
	for msg, window := range r.hits {
		if window = r.trim(window, now); len(window) == 0 {
			delete(r.hits, msg)
		} else {
			r.hits[msg] = window
		}
	}
}

func (r *rateLimiter) trim(window []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(window) && now.Sub(window[i]) > time.Second {
		i++
	}
	return window[i:]
}
