// FILE: lixenwraith/monitor/viewer/viewer.go
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
)

const (
	readChunk   = 32 * 1024
	eventBuffer = 64
)

// Event is one batch published by a Viewer
type Event struct {
	Lines   []Line
	Idle    bool // no new lines within the idle interval
	Rotated bool // the followed file was replaced or truncated
}

// Viewer follows one session file. Each viewer keeps its own handle and
// offset, so several viewers may follow the same file.
type Viewer struct {
	path    string
	jsonl   bool
	clock   clock.Clock
	idle    time.Duration
	backlog int
	layouts []string
	filter  atomic.Pointer[matcher]
	events  chan Event

	// Owned by Run
	file    *os.File
	info    os.FileInfo
	offset  int64
	partial []byte
	skip    bool // discard up to the first newline
	idling  bool
}

// Option configures a Viewer
type Option func(*Viewer)

// WithClock sets the time source of the idle timer
func WithClock(c clock.Clock) Option {
	return func(v *Viewer) {
		if c != nil {
			v.clock = c
		}
	}
}

// WithIdle sets the idle interval; zero disables idle events
func WithIdle(d time.Duration) Option {
	return func(v *Viewer) { v.idle = d }
}

// WithBacklog publishes the last n lines of the file before following
func WithBacklog(n int) Option {
	return func(v *Viewer) { v.backlog = n }
}

// WithFilter sets the initial filter; an invalid filter is ignored
func WithFilter(f Filter) Option {
	return func(v *Viewer) {
		if m, err := f.compile(); err == nil {
			v.filter.Store(m)
		}
	}
}

// WithTimeLayout sets the layout of text timestamps
func WithTimeLayout(layout string) Option {
	return func(v *Viewer) {
		if layout != "" {
			v.layouts = append([]string{layout}, defaultLayouts...)
		}
	}
}

// New creates a viewer for path; nothing is read until Run
func New(path string, opts ...Option) *Viewer {
	v := &Viewer{
		path:    filepath.Clean(path),
		jsonl:   isJSONL(path),
		clock:   clock.New(),
		idle:    10 * time.Second,
		layouts: defaultLayouts,
		events:  make(chan Event, eventBuffer),
	}
	v.filter.Store(&matcher{})
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Events returns the channel of published batches. It is closed when Run returns.
func (v *Viewer) Events() <-chan Event {
	return v.events
}

// SetFilter replaces the filter for lines read from now on
func (v *Viewer) SetFilter(f Filter) error {
	m, err := f.compile()
	if err != nil {
		return err
	}
	v.filter.Store(m)
	return nil
}

// Run follows the file until ctx is done. The file may not exist yet.
func (v *Viewer) Run(ctx context.Context) error {
	defer close(v.events)
	defer v.closeFile()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor/viewer: failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so renames and re-creation of the file are seen
	if err := watcher.Add(filepath.Dir(v.path)); err != nil {
		return fmt.Errorf("monitor/viewer: failed to watch '%s': %w", filepath.Dir(v.path), err)
	}

	var idleC <-chan time.Time
	var timer *clock.Timer
	if v.idle > 0 {
		timer = v.clock.Timer(v.idle)
		defer timer.Stop()
		idleC = timer.C
	}

	if err := v.openInitial(ctx); err != nil {
		return err
	}
	resetIdle := func() {
		v.idling = false
		if timer != nil {
			timer.Reset(v.idle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != v.path {
				continue
			}
			var batch Event
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Write) {
				batch = v.poll()
			}
			if len(batch.Lines) > 0 || batch.Rotated {
				if len(batch.Lines) > 0 {
					resetIdle()
				}
				if err := v.publish(ctx, v.filtered(batch)); err != nil {
					return nil
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("monitor/viewer: watch error: %w", err)

		case <-idleC:
			if !v.idling {
				v.idling = true
				if err := v.publish(ctx, Event{Idle: true}); err != nil {
					return nil
				}
			}
		}
	}
}

// openInitial opens the file if it exists and publishes the backlog
func (v *Viewer) openInitial(ctx context.Context) error {
	if err := v.openFile(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if v.backlog <= 0 {
		// Start at the end, skipping a partial last line
		if v.info.Size() > 0 {
			if _, err := v.file.Seek(v.info.Size(), io.SeekStart); err != nil {
				return fmt.Errorf("monitor/viewer: seek failed: %w", err)
			}
			v.offset = v.info.Size()
			last := make([]byte, 1)
			if _, err := v.file.ReadAt(last, v.offset-1); err == nil && last[0] != '\n' {
				v.skip = true
			}
		}
		return nil
	}

	lines := v.readLines()
	if len(lines) > v.backlog {
		lines = lines[len(lines)-v.backlog:]
	}
	if len(lines) == 0 {
		return nil
	}
	return v.publish(ctx, v.filtered(Event{Lines: lines}))
}

// poll reads new data and handles replacement or truncation of the path
func (v *Viewer) poll() Event {
	var ev Event

	if v.file == nil {
		if err := v.openFile(); err != nil {
			return ev
		}
		ev.Rotated = true
		ev.Lines = v.readLines()
		return ev
	}

	// Drain the handle we hold first; it may already be an archive
	ev.Lines = v.readLines()

	info, err := os.Stat(v.path)
	switch {
	case err != nil:
		// Path gone; keep the old handle until the new file appears
		return ev
	case !os.SameFile(info, v.info):
		ev.Lines = append(ev.Lines, v.flushPartial()...)
		v.closeFile()
		if err := v.openFile(); err != nil {
			return ev
		}
		ev.Rotated = true
		ev.Lines = append(ev.Lines, v.readLines()...)
	case info.Size() < v.offset:
		// Truncated in place
		v.partial = v.partial[:0]
		if _, err := v.file.Seek(0, io.SeekStart); err != nil {
			return ev
		}
		v.offset = 0
		v.info = info
		ev.Rotated = true
		ev.Lines = append(ev.Lines, v.readLines()...)
	}
	return ev
}

func (v *Viewer) openFile() error {
	f, err := os.Open(v.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("monitor/viewer: stat failed: %w", err)
	}
	v.file, v.info, v.offset = f, info, 0
	v.partial = v.partial[:0]
	v.skip = false
	return nil
}

func (v *Viewer) closeFile() {
	if v.file != nil {
		v.file.Close()
		v.file = nil
	}
}

// readLines reads to EOF and returns the complete lines; a trailing partial
// line is kept until its newline arrives
func (v *Viewer) readLines() []Line {
	if v.file == nil {
		return nil
	}
	buf := make([]byte, readChunk)
	for {
		n, err := v.file.Read(buf)
		if n > 0 {
			v.partial = append(v.partial, buf[:n]...)
			v.offset += int64(n)
		}
		if err != nil || n == 0 {
			break
		}
	}

	var lines []Line
	for {
		i := bytes.IndexByte(v.partial, '\n')
		if i < 0 {
			break
		}
		raw := string(bytes.TrimRight(v.partial[:i], "\r"))
		v.partial = v.partial[i+1:]
		if v.skip {
			v.skip = false
			continue
		}
		lines = append(lines, parseLine(raw, v.jsonl, v.layouts))
	}
	if len(v.partial) == 0 {
		v.partial = nil
	}
	return lines
}

// flushPartial returns an unterminated last line of a file being left behind
func (v *Viewer) flushPartial() []Line {
	if len(v.partial) == 0 || v.skip {
		v.partial = nil
		return nil
	}
	raw := string(v.partial)
	v.partial = nil
	return []Line{parseLine(raw, v.jsonl, v.layouts)}
}

// filtered applies the current filter without touching offsets
func (v *Viewer) filtered(ev Event) Event {
	m := v.filter.Load()
	out := ev.Lines[:0:0]
	for _, l := range ev.Lines {
		if m.match(l) {
			out = append(out, l)
		}
	}
	ev.Lines = out
	return ev
}

func (v *Viewer) publish(ctx context.Context, ev Event) error {
	if len(ev.Lines) == 0 && !ev.Idle && !ev.Rotated {
		return nil
	}
	select {
	case v.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
