// FILE: lixenwraith/monitor/compat/writer.go
package compat

import (
	"bytes"
	"strings"
	"sync"

	"github.com/lixenwraith/monitor"
)

// LineWriter turns a byte stream (stdin, a child process, the standard log
// package) into one record per line. Incomplete lines wait for the next Write.
type LineWriter struct {
	hub          *Hub
	category     string
	defaultLevel int64

	mu  sync.Mutex
	buf []byte
}

// NewLineWriter creates a writer emitting into hub under category
func NewLineWriter(hub *Hub, category string) *LineWriter {
	return &LineWriter{hub: hub, category: category, defaultLevel: monitor.LevelInfo}
}

// Write emits every complete line in p
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(w.buf[:i], "\r")))
		w.buf = w.buf[i+1:]
	}
	w.mu.Unlock()

	for _, line := range lines {
		w.emit(line)
	}
	return len(p), nil
}

// Close emits a trailing partial line, if any
func (w *LineWriter) Close() error {
	w.mu.Lock()
	rest := string(w.buf)
	w.buf = nil
	w.mu.Unlock()

	if rest != "" {
		w.emit(rest)
	}
	return nil
}

func (w *LineWriter) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	level, msg := SplitLevel(line, w.defaultLevel)
	w.hub.Log(level, w.category, msg)
}

// SplitLevel detects a leading level token ("[ERROR] ...", "warn: ...",
// "WARNING ...") and returns it with the remaining message. Plain lowercase
// words are left alone so "error opening file" keeps its text.
func SplitLevel(line string, def int64) (int64, string) {
	trimmed := strings.TrimSpace(line)
	token, rest, _ := strings.Cut(trimmed, " ")

	marked := strings.HasPrefix(token, "[") || strings.HasSuffix(token, ":")
	name := strings.TrimSuffix(strings.Trim(token, "[]"), ":")
	if name == "" || len(name) > 8 || (!marked && name != strings.ToUpper(name)) {
		return def, trimmed
	}
	level, err := monitor.Level(name)
	if err != nil {
		return def, trimmed
	}
	return level, strings.TrimSpace(rest)
}
