// FILE: lixenwraith/monitor/session.go
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/monitor/formatter"
	"github.com/lixenwraith/monitor/sanitizer"
)

var (
	// processStart and processID identify the host process lifetime
	processStart = time.Now()
	processID    = uuid.NewString()[:8]
)

// sessionFiles is the process-wide state of one session's outputs
type sessionFiles struct {
	session Session
	main    *rotatingFile
	jsonl   *rotatingFile
	errs    *rotatingFile
	known   map[string]*rotatingFile
	active  bool
}

func (sf *sessionFiles) each(fn func(*rotatingFile)) {
	for _, r := range []*rotatingFile{sf.main, sf.jsonl, sf.errs} {
		if r != nil {
			fn(r)
		}
	}
}

// registry keeps single file sessions alive across engine start/stop cycles
var registry = struct {
	sync.Mutex
	m map[string]*sessionFiles
}{m: make(map[string]*sessionFiles)}

// resetRegistry forgets all sessions; used to simulate a process restart
func resetRegistry() {
	registry.Lock()
	registry.m = make(map[string]*sessionFiles)
	registry.Unlock()
}

// WriterOption configures OpenSession
type WriterOption func(*writerOptions)

type writerOptions struct {
	open     OpenFunc
	now      func() time.Time
	onRotate func(path, archive string)
}

// WithOpenFunc replaces the file opener, e.g. to inject faults
func WithOpenFunc(fn OpenFunc) WriterOption {
	return func(o *writerOptions) {
		if fn != nil {
			o.open = fn
		}
	}
}

// WithRotateHook is called after each rotation with the live path and the archive path
func WithRotateHook(fn func(path, archive string)) WriterOption {
	return func(o *writerOptions) { o.onRotate = fn }
}

// withWriterClock sets the time source for archive names
func withWriterClock(now func() time.Time) WriterOption {
	return func(o *writerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// SessionWriter owns the on-disk files of the active session.
// Write, Rotate and Close must be called from one goroutine.
type SessionWriter struct {
	cfg      *Config
	files    *sessionFiles
	text     *formatter.Formatter
	released atomic.Bool
}

// OpenSession opens or, in single file mode, resumes the session for cfg
func OpenSession(cfg *Config, opts ...WriterOption) (*SessionWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := writerOptions{open: defaultOpen, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := filepath.Abs(cfg.Directory)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: cfg.Directory, Err: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	registry.Lock()
	defer registry.Unlock()

	key := filepath.Join(dir, cfg.Name)
	sf, ok := registry.m[key]
	if ok && sf.active {
		return nil, ErrSessionActive
	}
	if !ok || !cfg.SingleFileSession {
		started := o.now()
		id := fmt.Sprintf("%s_%s_%s", cfg.Name, processStart.Format("20060102_150405"), processID)
		if !cfg.SingleFileSession {
			id = fmt.Sprintf("%s_%s_%s", cfg.Name, started.Format("20060102_150405"), uuid.NewString()[:8])
		} else {
			started = processStart
		}
		sf = &sessionFiles{session: Session{
			ID:      id,
			Started: started,
			LogPath: filepath.Join(dir, id+".log"),
		}}
		sf.main = &rotatingFile{path: sf.session.LogPath}
	}

	// Outputs may be toggled between runs of the same session
	sf.session.JSONPath, sf.jsonl = "", nil
	if cfg.JSONLEnabled {
		sf.session.JSONPath = strings.TrimSuffix(sf.session.LogPath, ".log") + ".jsonl"
		sf.jsonl = sf.fileFor(sf.session.JSONPath)
	}
	sf.session.ErrorPath, sf.errs = "", nil
	if cfg.ErrorsFile {
		sf.session.ErrorPath = strings.TrimSuffix(sf.session.LogPath, ".log") + ".errors.log"
		sf.errs = sf.fileFor(sf.session.ErrorPath)
	}

	sf.each(func(r *rotatingFile) {
		r.halted.Store(false)
		r.open = o.open
		r.now = o.now
		r.maxBytes = cfg.MaxBytes()
		r.maxLines = cfg.MaxLines
		r.maxArchives = int(cfg.MaxArchives)
		r.compress = cfg.CompressArchives
		r.onRotate = o.onRotate
	})

	var openErr error
	sf.each(func(r *rotatingFile) {
		openErr = combineErrors(openErr, r.ensureOpen())
	})
	if openErr != nil {
		sf.each(func(r *rotatingFile) { r.drop() })
		return nil, openErr
	}

	sf.active = true
	registry.m[key] = sf

	if err := writeManifest(dir, sf.session); err != nil {
		internalLog("failed to write session manifest: %v", err)
	}

	text := formatter.New(sanitizer.New().Policy(sanitizer.PolicyTxt)).TimestampFormat(cfg.TimestampFormat)
	return &SessionWriter{cfg: cfg.Clone(), files: sf, text: text}, nil
}

// fileFor returns the rotatingFile for path, keeping counters across runs
func (sf *sessionFiles) fileFor(path string) *rotatingFile {
	if sf.known == nil {
		sf.known = make(map[string]*rotatingFile)
	}
	if r, ok := sf.known[path]; ok {
		return r
	}
	r := &rotatingFile{path: path}
	sf.known[path] = r
	return r
}

// Write appends a record to the log, the errors log and the JSONL file as configured
func (w *SessionWriter) Write(rec LogRecord) error {
	if w.released.Load() {
		return ErrClosed
	}

	line := w.text.Text(rec.Time, rec.Level, rec.Category, rec.Message, rec.Fields)
	err := w.files.main.write(line)

	if w.files.errs != nil && rec.Level >= LevelError {
		err = combineErrors(err, w.files.errs.write(line))
	}

	if w.files.jsonl != nil {
		obj := w.text.JSON(rec.Time, rec.Level, rec.Category, rec.Message, rec.Fields)
		err = combineErrors(err, w.files.jsonl.write(obj))
	}
	return err
}

// Sync flushes all outputs to disk
func (w *SessionWriter) Sync() error {
	var err error
	w.files.each(func(r *rotatingFile) {
		err = combineErrors(err, r.sync())
	})
	return err
}

// Rotate archives every output now
func (w *SessionWriter) Rotate() error {
	if w.released.Load() {
		return ErrClosed
	}
	var err error
	w.files.each(func(r *rotatingFile) {
		err = combineErrors(err, r.rotate())
	})
	return err
}

// Close closes the outputs and releases the session for a later resume
func (w *SessionWriter) Close() error {
	if w.released.Load() {
		return nil
	}
	var err error
	w.files.each(func(r *rotatingFile) {
		err = combineErrors(err, r.close())
	})
	w.release()
	return err
}

// abort closes handles without syncing; may run concurrently with a stuck writer
func (w *SessionWriter) abort() {
	w.files.each(func(r *rotatingFile) { r.abort() })
	w.release()
}

func (w *SessionWriter) release() {
	if !w.released.CompareAndSwap(false, true) {
		return
	}
	registry.Lock()
	w.files.active = false
	registry.Unlock()
}

// Released reports whether the writer gave up its session
func (w *SessionWriter) Released() bool {
	return w.released.Load()
}

// Session returns the session descriptor
func (w *SessionWriter) Session() Session {
	return w.files.session
}

// RotationState reports the main log's rotation accounting
func (w *SessionWriter) RotationState() RotationState {
	return w.files.main.state()
}

// Archives lists the main log's archives, oldest first
func (w *SessionWriter) Archives() ([]string, error) {
	return listArchives(w.files.main.path)
}

// writeManifest records the current session paths in the log directory
func writeManifest(dir string, s Session) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FULL=%s\n", s.LogPath)
	if s.ErrorPath != "" {
		fmt.Fprintf(&sb, "ERRORS=%s\n", s.ErrorPath)
	}
	if s.JSONPath != "" {
		fmt.Fprintf(&sb, "JSON=%s\n", s.JSONPath)
	}
	fmt.Fprintf(&sb, "STARTED=%s\n", s.Started.Format(time.RFC3339))

	tmp := filepath.Join(dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, manifestName))
}

// ReadManifest parses the manifest of a log directory
func ReadManifest(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmtErrorf("failed to read manifest: %w", err)
	}
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			out[k] = v
		}
	}
	return out, nil
}
