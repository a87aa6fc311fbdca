// FILE: lixenwraith/monitor/session_test.go
package monitor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSessionLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.JSONLEnabled = true
	cfg.ErrorsFile = true

	w, err := OpenSession(cfg)
	require.NoError(t, err)
	defer w.Close()

	sess := w.Session()
	assert.True(t, strings.HasPrefix(sess.ID, "test_"))
	assert.Equal(t, filepath.Join(cfg.Directory, sess.ID+".log"), sess.LogPath)
	assert.Equal(t, filepath.Join(cfg.Directory, sess.ID+".jsonl"), sess.JSONPath)
	assert.Equal(t, filepath.Join(cfg.Directory, sess.ID+".errors.log"), sess.ErrorPath)

	for _, p := range []string{sess.LogPath, sess.JSONPath, sess.ErrorPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err, "file %s should exist after open", p)
	}

	manifest, err := ReadManifest(cfg.Directory)
	require.NoError(t, err)
	assert.Equal(t, sess.LogPath, manifest["FULL"])
	assert.Equal(t, sess.ErrorPath, manifest["ERRORS"])
	assert.Equal(t, sess.JSONPath, manifest["JSON"])
	assert.NotEmpty(t, manifest["STARTED"])
}

func TestOpenSessionActive(t *testing.T) {
	cfg := testConfig(t)

	w, err := OpenSession(cfg)
	require.NoError(t, err)

	_, err = OpenSession(cfg)
	assert.ErrorIs(t, err, ErrSessionActive)

	require.NoError(t, w.Close())
	assert.True(t, w.Released())

	// Closing twice is harmless and writes after close fail
	assert.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(LogRecord{Message: "late"}), ErrClosed)
	assert.ErrorIs(t, w.Rotate(), ErrClosed)
}

func TestSessionResume(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Write(LogRecord{Time: now, Level: LevelInfo, Category: "host", Message: "one"}))
	require.NoError(t, first.Close())

	second, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Write(LogRecord{Time: now, Level: LevelInfo, Category: "host", Message: "two"}))
	require.NoError(t, second.Close())

	assert.Equal(t, first.Session(), second.Session())
	lines := readLines(t, first.Session().LogPath)
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-03-01 08:00:00.000 [INFO] [host] one", lines[0])
	assert.Equal(t, "2026-03-01 08:00:00.000 [INFO] [host] two", lines[1])
}

func TestSessionResumeKeepsLineCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxLines = 3

	for i := 0; i < 2; i++ {
		w, err := OpenSession(cfg)
		require.NoError(t, err)
		require.NoError(t, w.Write(LogRecord{Level: LevelInfo, Message: "x"}))
		require.NoError(t, w.Write(LogRecord{Level: LevelInfo, Message: "y"}))
		require.NoError(t, w.Close())
	}

	// Line accounting survives the restart, so the third line overall rotates
	w, err := OpenSession(cfg)
	require.NoError(t, err)
	defer w.Close()
	a, err := w.Archives()
	require.NoError(t, err)
	assert.Len(t, a, 1)
	assert.Equal(t, int64(1), w.RotationState().Lines)
}

func TestSessionNewPerRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.SingleFileSession = false

	first, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Close())

	assert.NotEqual(t, first.Session().ID, second.Session().ID)
}

func TestSessionProcessRestart(t *testing.T) {
	cfg := testConfig(t)

	first, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// A new process forgets the session but reuses the id prefix of its own start
	resetRegistry()
	second, err := OpenSession(cfg)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, first.Session().LogPath, second.Session().LogPath)
}

func TestSessionErrorRouting(t *testing.T) {
	cfg := testConfig(t)
	cfg.ErrorsFile = true

	w, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Write(LogRecord{Level: LevelWarn, Category: "host", Message: "warned"}))
	require.NoError(t, w.Write(LogRecord{Level: LevelError, Category: "host", Message: "failed"}))
	require.NoError(t, w.Close())

	sess := w.Session()
	assert.Len(t, readLines(t, sess.LogPath), 2)
	errLines := readLines(t, sess.ErrorPath)
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], "[ERROR] [host] failed")
}

func TestSessionOpenFailure(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("permission denied")

	_, err := OpenSession(cfg, WithOpenFunc(func(string) (LogFile, error) { return nil, boom }))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// A failed open does not hold the session
	w, err := OpenSession(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestSessionInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Name = "a/b"
	_, err := OpenSession(cfg)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "name", valErr.Key)
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.Error(t, err)
}
