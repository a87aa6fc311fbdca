// FILE: lixenwraith/monitor/default.go
package monitor

import (
	"sync"
)

// Process-wide engine for hosts with several entry points (menus, shortcuts)
var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Init creates the process engine for host. Later calls return the existing
// engine; options only apply to the first call.
func Init(host HostLogSource, opts ...Option) *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = New(host, opts...)
	}
	return defaultEngine
}

// Default returns the process engine, or nil before Init
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultEngine
}

// Teardown stops the process engine and forgets it; the next Init creates a new one
func Teardown() error {
	defaultMu.Lock()
	e := defaultEngine
	defaultEngine = nil
	defaultMu.Unlock()

	if e == nil {
		return nil
	}
	return e.Stop()
}
