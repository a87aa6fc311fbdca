// FILE: lixenwraith/monitor/compat/gnet.go
package compat

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/monitor"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// GnetAdapter publishes gnet's internal logging into a Hub
type GnetAdapter struct {
	hub          *Hub
	category     string
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a gnet logging.Logger that emits into hub
func NewGnetAdapter(hub *Hub, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		hub:      hub,
		category: "gnet",
		fatalHandler: func(msg string) {
			os.Exit(1) // gnet expects Fatalf not to return
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// WithGnetCategory overrides the "gnet" category
func WithGnetCategory(category string) GnetOption {
	return func(a *GnetAdapter) {
		a.category = category
	}
}

func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.hub.Log(monitor.LevelDebug, a.category, fmt.Sprintf(format, args...))
}

func (a *GnetAdapter) Infof(format string, args ...any) {
	a.hub.Log(monitor.LevelInfo, a.category, fmt.Sprintf(format, args...))
}

func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.hub.Log(monitor.LevelWarn, a.category, fmt.Sprintf(format, args...))
}

func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.hub.Log(monitor.LevelError, a.category, fmt.Sprintf(format, args...))
}

// Fatalf logs at error level and triggers the fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.hub.Log(monitor.LevelError, a.category, msg, "fatal", true)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
