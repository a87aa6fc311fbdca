// FILE: lixenwraith/monitor/storage.go
package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
)

// defaultOpen opens path for appending, creating it when missing
func defaultOpen(path string) (LogFile, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// fileRef wraps the current handle for atomic swaps
type fileRef struct {
	f LogFile
}

// rotatingFile is one output file with size/line rotation and archive retention.
// It is driven by a single goroutine; only abort may be called concurrently.
type rotatingFile struct {
	path        string
	open        OpenFunc
	now         func() time.Time
	maxBytes    int64
	maxLines    int64
	maxArchives int
	compress    bool
	onRotate    func(path, archive string)

	cur       atomic.Pointer[fileRef]
	halted    atomic.Bool
	size      int64
	lines     int64
	rotations int64
	archives  int
}

func (r *rotatingFile) file() LogFile {
	if ref := r.cur.Load(); ref != nil {
		return ref.f
	}
	return nil
}

// ensureOpen (re)opens the file after a fault, a rotation or a restart
func (r *rotatingFile) ensureOpen() error {
	if r.file() != nil {
		return nil
	}
	if r.halted.Load() {
		return &IOError{Op: "open", Path: r.path, Err: ErrClosed}
	}
	f, err := r.open(r.path)
	if err != nil {
		return &IOError{Op: "open", Path: r.path, Err: err}
	}
	r.cur.Store(&fileRef{f: f})

	if info, err := os.Stat(r.path); err == nil {
		r.size = info.Size()
		if r.size == 0 {
			r.lines = 0
		}
	}
	return nil
}

// drop discards the handle so the next write reopens it
func (r *rotatingFile) drop() {
	if ref := r.cur.Swap(nil); ref != nil {
		_ = ref.f.Close()
	}
}

// write appends one line. A size overflow rotates before the write, a reached
// line or size threshold rotates right after it.
func (r *rotatingFile) write(p []byte) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	var rotErr error
	if r.maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxBytes {
		rotErr = r.rotate()
		if err := r.ensureOpen(); err != nil {
			return combineErrors(rotErr, err)
		}
	}

	n, err := r.file().Write(p)
	r.size += int64(n)
	if err != nil {
		r.drop()
		return combineErrors(rotErr, &IOError{Op: "write", Path: r.path, Err: err})
	}
	r.lines++

	if (r.maxLines > 0 && r.lines >= r.maxLines) || (r.maxBytes > 0 && r.size >= r.maxBytes) {
		rotErr = combineErrors(rotErr, r.rotate())
	}
	return rotErr
}

// sync flushes the handle to disk
func (r *rotatingFile) sync() error {
	if f := r.file(); f != nil {
		if err := f.Sync(); err != nil {
			return &IOError{Op: "sync", Path: r.path, Err: err}
		}
	}
	return nil
}

// close syncs and closes the handle, keeping the counters for a later reopen
func (r *rotatingFile) close() error {
	ref := r.cur.Swap(nil)
	if ref == nil {
		return nil
	}
	err := ref.f.Sync()
	if cerr := ref.f.Close(); cerr != nil {
		err = combineErrors(err, cerr)
	}
	if err != nil {
		return &IOError{Op: "close", Path: r.path, Err: err}
	}
	return nil
}

// abort closes the handle without syncing; safe to call from another goroutine
func (r *rotatingFile) abort() {
	r.halted.Store(true)
	r.drop()
}

// rotate archives the current file and opens a fresh one at the same path
func (r *rotatingFile) rotate() error {
	if ref := r.cur.Swap(nil); ref != nil {
		_ = ref.f.Sync()
		if err := ref.f.Close(); err != nil {
			internalLog("failed to close log file before rotation: %v", err)
		}
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		r.size, r.lines = 0, 0
		return r.ensureOpen()
	}

	archive := r.archivePath(r.now())
	if err := os.Rename(r.path, archive); err != nil {
		return &IOError{Op: "rotate", Path: r.path, Err: err}
	}
	r.size, r.lines = 0, 0
	r.rotations++

	var errs error
	if r.compress {
		gz, err := gzipFile(archive)
		if err != nil {
			errs = &IOError{Op: "compress", Path: archive, Err: err}
		} else {
			archive = gz
		}
	}

	if err := r.enforceRetention(); err != nil {
		errs = combineErrors(errs, err)
	}

	if err := r.ensureOpen(); err != nil {
		errs = combineErrors(errs, err)
	}

	if r.onRotate != nil {
		r.onRotate(r.path, archive)
	}
	return errs
}

// archivePath builds "<stem>.<yymmdd_hhmmss>_<nanos><ext>", unique within the directory
func (r *rotatingFile) archivePath(ts time.Time) string {
	dir := filepath.Dir(r.path)
	base := filepath.Base(r.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for {
		name := fmt.Sprintf("%s.%s_%09d%s", stem, ts.Format(archiveTimeLayout), ts.Nanosecond(), ext)
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		_, gzErr := os.Stat(path + ".gz")
		if os.IsNotExist(err) && os.IsNotExist(gzErr) {
			return path
		}
		ts = ts.Add(time.Nanosecond)
	}
}

// archivePattern matches archives produced for path
func archivePattern(path string) *regexp.Regexp {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `\.\d{6}_\d{6}_\d{9}` + regexp.QuoteMeta(ext) + `(\.gz)?$`)
}

// listArchives returns archive paths of path, oldest first
func listArchives(path string) ([]string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	pattern := archivePattern(path)
	var archives []string
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		archives = append(archives, filepath.Join(dir, entry.Name()))
	}
	// Timestamp layout sorts lexically in time order
	sort.Strings(archives)
	return archives, nil
}

// enforceRetention deletes the oldest archives beyond maxArchives
func (r *rotatingFile) enforceRetention() error {
	archives, err := listArchives(r.path)
	if err != nil {
		return err
	}
	if r.maxArchives > 0 && len(archives) > r.maxArchives {
		excess := archives[:len(archives)-r.maxArchives]
		for _, old := range excess {
			if err := os.Remove(old); err != nil {
				internalLog("failed to remove old archive '%s': %v", old, err)
				continue
			}
		}
		archives = archives[len(excess):]
	}
	r.archives = len(archives)
	return nil
}

func (r *rotatingFile) state() RotationState {
	return RotationState{
		Size:        r.size,
		Lines:       r.lines,
		MaxBytes:    r.maxBytes,
		MaxLines:    r.maxLines,
		Rotations:   r.rotations,
		Archives:    r.archives,
		MaxArchives: r.maxArchives,
	}
}

// gzipFile compresses path into path.gz and removes the original
func gzipFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := path + ".gz"
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}

	zw := gzip.NewWriter(dst)
	zw.Name = filepath.Base(path)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		os.Remove(dstPath)
		return "", err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", err
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return dstPath, err
	}
	return dstPath, nil
}

// getLogDirSize returns the total size of regular files in dir
func getLogDirSize(dir string) (int64, error) {
	var size int64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}
	return size, nil
}
