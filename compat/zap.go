// FILE: lixenwraith/monitor/compat/zap.go
package compat

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lixenwraith/monitor"
)

// ZapCore is a zapcore.Core publishing entries into a Hub. The logger name,
// when set, becomes the record category.
type ZapCore struct {
	zapcore.LevelEnabler
	hub      *Hub
	category string
	fields   []zapcore.Field
}

// NewZapCore creates a core for hub enabled at lvl and above
func NewZapCore(hub *Hub, category string, lvl zapcore.LevelEnabler) *ZapCore {
	if lvl == nil {
		lvl = zapcore.DebugLevel
	}
	return &ZapCore{LevelEnabler: lvl, hub: hub, category: category}
}

// NewZapLogger wraps NewZapCore in a *zap.Logger
func NewZapLogger(hub *Hub, category string, opts ...zap.Option) *zap.Logger {
	return zap.New(NewZapCore(hub, category, zapcore.DebugLevel), opts...)
}

func (c *ZapCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *ZapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ZapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	category := c.category
	if ent.LoggerName != "" {
		category = ent.LoggerName
	}
	var out map[string]any
	if len(enc.Fields) > 0 {
		out = enc.Fields
	}
	c.hub.Emit(monitor.LogRecord{
		Time:     ent.Time,
		Level:    zapLevel(ent.Level),
		Category: category,
		Message:  ent.Message,
		Fields:   out,
	})
	return nil
}

func (c *ZapCore) Sync() error { return nil }

// zapLevel maps zap levels onto the four monitor levels
func zapLevel(l zapcore.Level) int64 {
	switch {
	case l <= zapcore.DebugLevel:
		return monitor.LevelDebug
	case l == zapcore.InfoLevel:
		return monitor.LevelInfo
	case l == zapcore.WarnLevel:
		return monitor.LevelWarn
	default:
		return monitor.LevelError
	}
}
