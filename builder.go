// FILE: lixenwraith/monitor/builder.go
package monitor

import "time"

// Builder provides a fluent API for building monitor configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg *Config
	err error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build validates and returns the configuration.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg.Clone(), nil
}

// Start builds the configuration and starts a new engine attached to host.
func (b *Builder) Start(host HostLogSource, opts ...Option) (*Engine, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	e := New(host, opts...)
	if err := e.Start(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Level sets the minimum routed level by name.
func (b *Builder) Level(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := Level(level); err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = level
	return b
}

// Directory sets the log directory.
func (b *Builder) Directory(dir string) *Builder {
	b.cfg.Directory = dir
	return b
}

// Name sets the session file base name.
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// SingleFileSession toggles one session per process lifetime.
func (b *Builder) SingleFileSession(enable bool) *Builder {
	b.cfg.SingleFileSession = enable
	return b
}

// JSONL toggles the JSONL sibling output.
func (b *Builder) JSONL(enable bool) *Builder {
	b.cfg.JSONLEnabled = enable
	return b
}

// ErrorsFile toggles the errors-only sibling log.
func (b *Builder) ErrorsFile(enable bool) *Builder {
	b.cfg.ErrorsFile = enable
	return b
}

// MaxSizeKB sets the rotation size in KB.
func (b *Builder) MaxSizeKB(size int64) *Builder {
	b.cfg.MaxSizeKB = size
	return b
}

// MaxLines sets the rotation line count.
func (b *Builder) MaxLines(lines int64) *Builder {
	b.cfg.MaxLines = lines
	return b
}

// MaxArchives sets how many archives are kept.
func (b *Builder) MaxArchives(n int64) *Builder {
	b.cfg.MaxArchives = n
	return b
}

// CompressArchives toggles gzip of rotated files.
func (b *Builder) CompressArchives(enable bool) *Builder {
	b.cfg.CompressArchives = enable
	return b
}

// CoalesceWindow sets the duplicate suppression window.
func (b *Builder) CoalesceWindow(d time.Duration) *Builder {
	b.cfg.CoalesceEnabled = d > 0
	if d > 0 {
		b.cfg.CoalesceWindowSec = d.Seconds()
	}
	return b
}

// Scrub toggles redaction of paths and addresses.
func (b *Builder) Scrub(enable bool) *Builder {
	b.cfg.ScrubEnabled = enable
	return b
}

// Heartbeat sets the keep-alive record interval, zero disables it.
func (b *Builder) Heartbeat(d time.Duration) *Builder {
	b.cfg.HeartbeatSec = int64(d / time.Second)
	return b
}

// Watchdog configures stall detection.
func (b *Builder) Watchdog(interval time.Duration, multiplier float64, threshold int64) *Builder {
	b.cfg.WatchdogEnabled = interval > 0
	if interval > 0 {
		b.cfg.WatchdogIntervalSec = interval.Seconds()
		b.cfg.WatchdogMultiplier = multiplier
		b.cfg.WatchdogMissThreshold = threshold
	}
	return b
}

// Webhook sets the webhook target and minimum forwarded level.
func (b *Builder) Webhook(url, minLevel string) *Builder {
	b.cfg.WebhookURL = url
	if minLevel != "" {
		b.cfg.WebhookMinLevel = minLevel
	}
	return b
}

// BufferSize sets the writer queue capacity.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// Override applies "key=value" strings on top of the builder state.
func (b *Builder) Override(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.cfg.ApplyOverride(overrides...)
	return b
}

// Example usage:
// engine, err := monitor.NewBuilder().
//
//	Directory("/var/log/host").
//	Level("info").
//	JSONL(true).
//	MaxLines(10000).
//	Start(hub)
//
// if err == nil {
//
//	 defer engine.Stop()
//	}
