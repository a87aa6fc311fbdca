// FILE: lixenwraith/monitor/errors.go
package monitor

import (
	"errors"
	"fmt"
)

var (
	ErrSessionActive = errors.New("monitor: session already active")
	ErrNotRunning    = errors.New("monitor: engine not running")
	ErrQueueFull     = errors.New("monitor: queue full")
	ErrHostRefused   = errors.New("monitor: host refused registration")
	ErrClosed        = errors.New("monitor: file closed")
)

// ValidationError reports a configuration value that cannot be converted or fails its rule
type ValidationError struct {
	Key      string
	Expected string
	Value    any
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("monitor: invalid %s (%s): %v: %s", e.Key, e.Expected, e.Value, e.Reason)
	}
	return fmt.Sprintf("monitor: invalid %s: expected %s, got %T", e.Key, e.Expected, e.Value)
}

// StartupError is returned when the engine cannot transition to running
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("monitor: startup failed: %s: %v", e.Reason, e.Err)
	}
	return "monitor: startup failed: " + e.Reason
}

func (e *StartupError) Unwrap() error { return e.Err }

// IOError wraps a file operation failure of the session writer
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("monitor: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DeliveryError wraps a failed webhook post
type DeliveryError struct {
	URL    string
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("monitor: webhook %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("monitor: webhook %s: status %d", e.URL, e.Status)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
