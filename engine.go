// FILE: lixenwraith/monitor/engine.go
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/monitor/sanitizer"
)

// routing holds the per-record settings read on the host's calling goroutine
type routing struct {
	minLevel     int64
	webhookLevel int64
	coalesce     bool
	scrub        *sanitizer.Sanitizer
}

// run is the state of one Running period, from Start to Stop
type run struct {
	cfg        *Config
	writer     *SessionWriter
	queue      chan queueItem
	closed     bool // guarded by Engine.routeMu
	limiter    *rateLimiter
	hook       atomic.Pointer[webhook]
	aborted    atomic.Bool
	tickStop   chan struct{}
	tickDone   chan struct{}
	writerDone chan struct{}
	rotation   atomic.Value // stores RotationState
}

// Engine receives host log records, coalesces them, writes the session files,
// supervises liveness and keeps a breadcrumb trail of its own events.
type Engine struct {
	host   HostLogSource
	clock  clock.Clock
	logger *zap.Logger
	open   OpenFunc
	dial   fasthttp.DialFunc

	lifecycleMu sync.Mutex // serializes Start, Stop and Reload
	routeMu     sync.Mutex // orders coalescing with enqueueing
	tickMu      sync.Mutex

	cfg     atomic.Pointer[Config]
	route   atomic.Pointer[routing]
	session atomic.Pointer[Session]
	state   State

	cur           *run
	crumbs        *Breadcrumbs
	coalescer     *Coalescer
	watchdog      *Watchdog
	lastHeartbeat time.Time // guarded by tickMu
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source, e.g. a clock.Mock in tests
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger for the engine's own diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFileOpener replaces how session files are opened
func WithFileOpener(fn OpenFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.open = fn
		}
	}
}

// WithWebhookDial sets the dialer of the webhook client
func WithWebhookDial(dial fasthttp.DialFunc) Option {
	return func(e *Engine) { e.dial = dial }
}

// New creates a stopped engine attached to host
func New(host HostLogSource, opts ...Option) *Engine {
	def := DefaultConfig()
	e := &Engine{
		host:   host,
		clock:  clock.New(),
		logger: zap.NewNop(),
		open:   defaultOpen,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cfg.Store(def)
	e.crumbs = NewBreadcrumbs(int(def.BreadcrumbLimit))
	e.coalescer = NewCoalescer(def.CoalesceWindow(), def.activeNoise())
	e.watchdog = NewWatchdog(def.WatchdogInterval(), def.WatchdogMultiplier, def.WatchdogMissThreshold)
	e.state.set(StateStopped)
	return e
}

// Start validates cfg, opens the session, registers with the host and begins
// routing. On any failure the engine stays stopped and a *StartupError is returned.
func (e *Engine) Start(cfg *Config) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	return e.start(cfg)
}

func (e *Engine) start(cfg *Config) error {
	if !e.state.transition(StateStopped, StateStarting) {
		return &StartupError{Reason: "engine already active", Err: ErrSessionActive}
	}
	fail := func(reason string, err error) error {
		e.state.set(StateStopped)
		e.crumb("start failed: %s", reason)
		e.logger.Warn("monitor start failed", zap.String("reason", reason), zap.Error(err))
		return &StartupError{Reason: reason, Err: err}
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fail("invalid configuration", err)
	}
	if e.host == nil {
		return fail("no host log source", nil)
	}
	cfg = cfg.Clone()

	w, err := OpenSession(cfg,
		WithOpenFunc(e.open),
		WithRotateHook(e.onRotate),
		withWriterClock(e.clock.Now),
	)
	if err != nil {
		return fail("cannot open session", err)
	}

	r := &run{
		cfg:        cfg,
		writer:     w,
		queue:      make(chan queueItem, cfg.BufferSize),
		limiter:    newRateLimiter(cfg.RateLimitPerSec),
		tickStop:   make(chan struct{}),
		tickDone:   make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	r.rotation.Store(w.RotationState())
	if hook := e.newWebhook(cfg); hook != nil {
		r.hook.Store(hook)
	}

	e.cfg.Store(cfg)
	e.applyRouting(cfg)
	sess := w.Session()
	e.session.Store(&sess)

	e.routeMu.Lock()
	e.cur = r
	e.routeMu.Unlock()

	now := e.clock.Now()
	e.tickMu.Lock()
	e.lastHeartbeat = now
	e.tickMu.Unlock()

	go e.processRecords(r)
	go e.runTicker(r)

	if err := e.host.Register(e); err != nil {
		e.halt(r, "registration refused")
		return fail("host refused registration", err)
	}

	e.watchdog.Start(now)
	e.state.StartTime.Store(now)
	e.state.set(StateRunning)
	e.crumb("started session %s", sess.ID)
	e.logger.Info("monitor started", zap.String("session", sess.ID), zap.String("log", sess.LogPath))
	e.writeBanner(r, sess)
	return nil
}

// Stop flushes open coalescing buckets, unregisters from the host and closes
// the session files. Calling Stop on a stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	return e.stop("stopped")
}

func (e *Engine) stop(reason string) error {
	if !e.state.transition(StateRunning, StateStopping) {
		return nil
	}

	var errs error
	if err := e.host.Unregister(e); err != nil {
		e.crumb("unregister failed: %v", err)
		errs = combineErrors(errs, err)
	}

	e.routeMu.Lock()
	r := e.cur
	e.routeMu.Unlock()

	errs = combineErrors(errs, e.halt(r, reason))
	e.watchdog.Stop()
	e.state.set(StateStopped)
	e.crumb("%s session %s", reason, r.writer.Session().ID)
	e.logger.Info("monitor stopped", zap.String("reason", reason))
	return errs
}

// halt ends a run: stops the ticker, flushes the coalescer, drains the writer
// queue within the stop timeout and closes the files.
func (e *Engine) halt(r *run, reason string) error {
	close(r.tickStop)
	<-r.tickDone

	now := e.clock.Now()
	e.routeMu.Lock()
	for _, s := range e.coalescer.Flush(now) {
		e.enqueueLocked(r, queueItem{kind: kindRecord, rec: s})
	}
	e.enqueueLocked(r, queueItem{kind: kindInternal, rec: LogRecord{
		Time:     now,
		Level:    LevelInfo,
		Category: CategoryMonitor,
		Message:  "monitor session " + reason,
	}})
	r.closed = true
	close(r.queue)
	e.routeMu.Unlock()

	var errs error
	timeout := r.cfg.StopTimeout()
	select {
	case <-r.writerDone:
	case <-time.After(timeout):
		r.aborted.Store(true)
		r.writer.abort()
		e.crumb("writer did not drain within %s, files force-closed", timeout)
		e.logger.Warn("monitor writer drain timed out", zap.Duration("timeout", timeout))
		errs = fmtErrorf("writer did not drain within %s", timeout)
		select {
		case <-r.writerDone:
		case <-time.After(abortGrace):
		}
	}

	if err := r.writer.Close(); err != nil {
		errs = combineErrors(errs, err)
	}
	if hook := r.hook.Swap(nil); hook != nil {
		hook.stop(timeout)
	}
	return errs
}

// Reload applies a new configuration to a running engine. Routing settings
// change in place; file layout settings restart the session.
func (e *Engine) Reload(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.state.get() != StateRunning {
		return ErrNotRunning
	}
	cfg = cfg.Clone()
	old := e.cfg.Load()

	if !old.sameFiles(cfg) {
		if err := e.stop("restarted"); err != nil {
			e.logger.Warn("monitor restart stop error", zap.Error(err))
		}
		return e.start(cfg)
	}

	e.routeMu.Lock()
	r := e.cur
	r.limiter = newRateLimiter(cfg.RateLimitPerSec)
	e.routeMu.Unlock()

	if old.WebhookURL != cfg.WebhookURL || old.WebhookTimeoutMs != cfg.WebhookTimeoutMs || old.WebhookQueue != cfg.WebhookQueue {
		prev := r.hook.Swap(e.newWebhook(cfg))
		if prev != nil {
			prev.stop(cfg.StopTimeout())
		}
	}

	e.cfg.Store(cfg)
	e.applyRouting(cfg)
	e.crumb("settings reloaded")
	return nil
}

// applyRouting pushes routing settings to the coalescer, watchdog and breadcrumbs
func (e *Engine) applyRouting(cfg *Config) {
	rt := &routing{
		minLevel:     cfg.LevelValue(),
		webhookLevel: cfg.WebhookLevel(),
		coalesce:     cfg.CoalesceEnabled,
	}
	if cfg.ScrubEnabled {
		rt.scrub = sanitizer.New().Policy(sanitizer.PolicyScrub)
	}
	e.route.Store(rt)

	e.coalescer.SetWindow(cfg.CoalesceWindow())
	e.coalescer.SetNoise(cfg.activeNoise())
	e.watchdog.Configure(cfg.WatchdogEnabled, cfg.WatchdogInterval(), cfg.WatchdogMultiplier, cfg.WatchdogMissThreshold)
	e.crumbs.Resize(int(cfg.BreadcrumbLimit))
}

// writeBanner records the session layout at the top of each run
func (e *Engine) writeBanner(r *run, sess Session) {
	now := e.clock.Now()
	lines := []string{
		"monitor session " + sess.ID + " started",
		"log file: " + sess.LogPath,
	}
	if sess.ErrorPath != "" {
		lines = append(lines, "errors file: "+sess.ErrorPath)
	}
	if sess.JSONPath != "" {
		lines = append(lines, "jsonl file: "+sess.JSONPath)
	}

	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	for _, msg := range lines {
		e.enqueueLocked(r, queueItem{kind: kindInternal, rec: LogRecord{
			Time:     now,
			Level:    LevelInfo,
			Category: CategoryMonitor,
			Message:  msg,
		}})
	}
}

// Flush waits until every record routed so far has been written and synced
func (e *Engine) Flush(timeout time.Duration) error {
	if e.state.get() != StateRunning {
		return ErrNotRunning
	}

	done := make(chan struct{})
	deadline := time.Now().Add(timeout)
	for {
		e.routeMu.Lock()
		r := e.cur
		if r == nil || r.closed {
			e.routeMu.Unlock()
			return ErrNotRunning
		}
		select {
		case r.queue <- queueItem{kind: kindFlush, done: done}:
			e.routeMu.Unlock()
			select {
			case <-done:
				return nil
			case <-time.After(time.Until(deadline)):
				return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
			}
		default:
			e.routeMu.Unlock()
		}
		if time.Now().After(deadline) {
			return fmtErrorf("timeout waiting for queue space (%v)", timeout)
		}
		time.Sleep(minWaitTime)
	}
}

// State returns the lifecycle state name
func (e *Engine) State() string {
	return StateName(e.state.get())
}

// Health returns healthy, degraded or stopped
func (e *Engine) Health() string {
	if e.state.get() != StateRunning {
		return HealthStopped
	}
	if e.state.WriterFault.Load() || e.watchdog.Degraded() {
		return HealthDegraded
	}
	return HealthHealthy
}

// Config returns a copy of the configuration in effect
func (e *Engine) Config() *Config {
	return e.cfg.Load().Clone()
}

// Session returns the current or last session, if any
func (e *Engine) Session() (Session, bool) {
	if s := e.session.Load(); s != nil {
		return *s, true
	}
	return Session{}, false
}

// Breadcrumbs returns up to limit newest engine events
func (e *Engine) Breadcrumbs(limit int) []Breadcrumb {
	return e.crumbs.Snapshot(limit)
}

// Stats returns a counter snapshot
func (e *Engine) Stats() Stats {
	st := Stats{
		Routed:         e.state.TotalRouted.Load(),
		Filtered:       e.state.TotalFiltered.Load(),
		Written:        e.state.TotalWritten.Load(),
		Dropped:        e.state.TotalDropped.Load(),
		Suppressed:     e.coalescer.Suppressed(),
		Muted:          e.coalescer.Muted(),
		Summaries:      e.coalescer.Summaries(),
		WriteErrors:    e.state.TotalWriteErrors.Load(),
		Rotations:      e.state.TotalRotations.Load(),
		Heartbeats:     e.state.HeartbeatSequence.Load(),
		WebhookSent:    e.state.WebhookSent.Load(),
		WebhookFailed:  e.state.WebhookFailed.Load(),
		WebhookDropped: e.state.WebhookDropped.Load(),
		OpenBuckets:    e.coalescer.Open(),
	}
	e.routeMu.Lock()
	if r := e.cur; r != nil {
		if r.limiter != nil {
			st.RateLimited = r.limiter.dropped.Load()
		}
		if !r.closed {
			st.QueueLength = len(r.queue)
		}
	}
	e.routeMu.Unlock()
	return st
}

// Status returns the snapshot for status views
func (e *Engine) Status() Status {
	st := Status{
		State:       e.State(),
		Health:      e.Health(),
		Heartbeat:   e.watchdog.Status(),
		Breadcrumbs: e.crumbs.Snapshot(0),
		Stats:       e.Stats(),
	}
	if s, ok := e.Session(); ok {
		st.Session = &s
	}
	e.routeMu.Lock()
	if r := e.cur; r != nil {
		if rs, ok := r.rotation.Load().(RotationState); ok {
			st.Rotation = rs
		}
	}
	e.routeMu.Unlock()
	return st
}

// crumb appends a breadcrumb stamped with the engine clock
func (e *Engine) crumb(format string, args ...any) {
	e.crumbs.Addf(e.clock.Now(), format, args...)
}

// onRotate is called by the writer task after each rotation
func (e *Engine) onRotate(path, archive string) {
	e.state.TotalRotations.Add(1)
	e.crumb("rotated %s to %s", baseName(path), baseName(archive))
	e.logger.Debug("monitor rotated file", zap.String("path", path), zap.String("archive", archive))
}
