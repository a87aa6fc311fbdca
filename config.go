// FILE: lixenwraith/monitor/config.go
package monitor

import (
	"errors"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds all monitor configuration values
type Config struct {
	// Basic settings
	Level     string `toml:"level"`     // Minimum level routed to the session files
	Directory string `toml:"directory"` // Log directory
	Name      string `toml:"name"`      // Base name for session files

	// Session files
	SingleFileSession bool  `toml:"single_file_session"` // Reuse one session for the process lifetime
	JSONLEnabled      bool  `toml:"jsonl_enabled"`       // Parallel JSONL output
	ErrorsFile        bool  `toml:"errors_file"`         // Errors-only sibling log
	MaxSizeKB         int64 `toml:"max_size_kb"`         // Rotate at this size (0 disables)
	MaxLines          int64 `toml:"max_lines"`           // Rotate at this line count (0 disables)
	MaxArchives       int64 `toml:"max_archives"`        // Archived files kept per output (0 keeps all)
	CompressArchives  bool  `toml:"compress_archives"`   // Gzip archives after rotation

	// Routing
	CoalesceEnabled   bool     `toml:"coalesce_enabled"`
	CoalesceWindowSec float64  `toml:"coalesce_window_sec"`
	MuteHostNoise     bool     `toml:"mute_host_noise"`
	NoisePatterns     []string `toml:"noise_patterns"`
	RateLimitPerSec   int64    `toml:"rate_limit_per_sec"` // Per message cap (0 disables)
	ScrubEnabled      bool     `toml:"scrub_enabled"`
	TimestampFormat   string   `toml:"timestamp_format"`

	// Heartbeat and watchdog
	HeartbeatSec          int64   `toml:"heartbeat_sec"` // Keep-alive record interval (0 disables)
	WatchdogEnabled       bool    `toml:"watchdog_enabled"`
	WatchdogIntervalSec   float64 `toml:"watchdog_interval_sec"`
	WatchdogMultiplier    float64 `toml:"watchdog_multiplier"`
	WatchdogMissThreshold int64   `toml:"watchdog_miss_threshold"`

	// Webhook
	WebhookURL       string `toml:"webhook_url"`
	WebhookMinLevel  string `toml:"webhook_min_level"`
	WebhookTimeoutMs int64  `toml:"webhook_timeout_ms"`
	WebhookQueue     int64  `toml:"webhook_queue"`

	// Engine
	BufferSize      int64 `toml:"buffer_size"` // Writer queue capacity
	StopTimeoutMs   int64 `toml:"stop_timeout_ms"`
	BreadcrumbLimit int64 `toml:"breadcrumb_limit"`

	// Viewer
	TailLines     int64   `toml:"tail_lines"`
	ViewerIdleSec float64 `toml:"viewer_idle_sec"`
}

// defaultNoisePatterns are host internals known to repeat without diagnostic value
var defaultNoisePatterns = []string{
	"Could not resolve property: #Checkerboard",
	"Could not resolve property: #Cross",
	"Could not resolve property: #Dense",
	"Cannot open file ':/images/themes/default/",
	"libpng warning:",
}

var defaultConfig = Config{
	Level:     "debug",
	Directory: "./logs",
	Name:      "monitor",

	SingleFileSession: true,
	JSONLEnabled:      false,
	ErrorsFile:        true,
	MaxSizeKB:         20480,
	MaxLines:          0,
	MaxArchives:       5,
	CompressArchives:  false,

	CoalesceEnabled:   true,
	CoalesceWindowSec: 3.0,
	MuteHostNoise:     true,
	NoisePatterns:     defaultNoisePatterns,
	RateLimitPerSec:   0,
	ScrubEnabled:      true,
	TimestampFormat:   "2006-01-02 15:04:05.000",

	HeartbeatSec:          30,
	WatchdogEnabled:       true,
	WatchdogIntervalSec:   30,
	WatchdogMultiplier:    2.0,
	WatchdogMissThreshold: 3,

	WebhookURL:       "",
	WebhookMinLevel:  "error",
	WebhookTimeoutMs: 2000,
	WebhookQueue:     64,

	BufferSize:      1024,
	StopTimeoutMs:   2000,
	BreadcrumbLimit: 400,

	TailLines:     800,
	ViewerIdleSec: 10,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	return defaultConfig.Clone()
}

// NewConfigFromFile loads configuration from the [monitor] table of a TOML file.
// A missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Use lixenwraith/config as a loader
	loader := config.New()

	if err := loader.RegisterStruct("monitor.", *cfg); err != nil {
		return nil, fmtErrorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}

	values := make(map[string]any, len(schema))
	for _, s := range schema {
		if val, found := loader.Get("monitor." + s.Key); found {
			values[s.Key] = val
		}
	}

	return Convert(values)
}

// Validate runs every setting validator against the configuration
func (c *Config) Validate() error {
	var errs error
	for i := range schema {
		s := &schema[i]
		if err := s.Validate(s.get(c)); err != nil {
			errs = combineErrors(errs, err)
		}
	}
	return errs
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	copiedConfig.NoisePatterns = append([]string{}, c.NoisePatterns...)
	return &copiedConfig
}

// LevelValue returns the numeric minimum level
func (c *Config) LevelValue() int64 { return mustLevel(c.Level) }

// WebhookLevel returns the numeric webhook threshold
func (c *Config) WebhookLevel() int64 { return mustLevel(c.WebhookMinLevel) }

func (c *Config) CoalesceWindow() time.Duration {
	return time.Duration(c.CoalesceWindowSec * float64(time.Second))
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSec) * time.Second
}

func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogIntervalSec * float64(time.Second))
}

func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutMs) * time.Millisecond
}

func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}

func (c *Config) ViewerIdle() time.Duration {
	return time.Duration(c.ViewerIdleSec * float64(time.Second))
}

// MaxBytes returns the size rotation threshold in bytes
func (c *Config) MaxBytes() int64 { return c.MaxSizeKB * sizeMultiplier }

// activeNoise returns the noise patterns in effect
func (c *Config) activeNoise() []string {
	if !c.MuteHostNoise {
		return nil
	}
	return c.NoisePatterns
}

// sameFiles reports whether two configurations produce the same session files
func (c *Config) sameFiles(o *Config) bool {
	return c.Directory == o.Directory &&
		c.Name == o.Name &&
		c.SingleFileSession == o.SingleFileSession &&
		c.JSONLEnabled == o.JSONLEnabled &&
		c.ErrorsFile == o.ErrorsFile &&
		c.MaxSizeKB == o.MaxSizeKB &&
		c.MaxLines == o.MaxLines &&
		c.MaxArchives == o.MaxArchives &&
		c.CompressArchives == o.CompressArchives &&
		c.TimestampFormat == o.TimestampFormat &&
		c.BufferSize == o.BufferSize
}
