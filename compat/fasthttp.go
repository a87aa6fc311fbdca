// FILE: lixenwraith/monitor/compat/fasthttp.go
package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/monitor"
)

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter publishes fasthttp server logging into a Hub
type FastHTTPAdapter struct {
	hub           *Hub
	category      string
	defaultLevel  int64
	levelDetector func(string) (int64, bool)
}

// NewFastHTTPAdapter creates a fasthttp.Logger that emits into hub
func NewFastHTTPAdapter(hub *Hub, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		hub:           hub,
		category:      "fasthttp",
		defaultLevel:  monitor.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when no level is detected
func WithDefaultLevel(level int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content
func WithLevelDetector(detector func(string) (int64, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}
	a.hub.Log(level, a.category, msg)
}

// DetectLogLevel guesses a level from keywords in msg
func DetectLogLevel(msg string) (int64, bool) {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "error"),
		strings.Contains(msgLower, "failed"),
		strings.Contains(msgLower, "fatal"),
		strings.Contains(msgLower, "panic"):
		return monitor.LevelError, true
	case strings.Contains(msgLower, "warn"),
		strings.Contains(msgLower, "deprecated"):
		return monitor.LevelWarn, true
	case strings.Contains(msgLower, "debug"),
		strings.Contains(msgLower, "trace"):
		return monitor.LevelDebug, true
	}
	return 0, false
}
