// FILE: lixenwraith/monitor/type.go
package monitor

import (
	"time"
)

// LogRecord is one log event delivered by the host logging subsystem.
// Records are treated as immutable once created.
type LogRecord struct {
	Time     time.Time
	Level    int64
	Category string
	Message  string
	Fields   map[string]any
}

// Session identifies the on-disk output of one engine run or, in single file mode,
// of one process lifetime.
type Session struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	LogPath   string    `json:"log_path"`
	JSONPath  string    `json:"json_path,omitempty"`
	ErrorPath string    `json:"error_path,omitempty"`
}

// RotationState reports size and line accounting of the active log file
type RotationState struct {
	Size        int64 `json:"size"`
	Lines       int64 `json:"lines"`
	MaxBytes    int64 `json:"max_bytes"`
	MaxLines    int64 `json:"max_lines"`
	Rotations   int64 `json:"rotations"`
	Archives    int   `json:"archives"`
	MaxArchives int   `json:"max_archives"`
}

// queueKind distinguishes writer queue entries
type queueKind int

const (
	kindRecord queueKind = iota
	kindKeepAlive
	kindInternal
	kindFlush
)

// queueItem is one unit of work for the writer task
type queueItem struct {
	kind  queueKind
	rec   LogRecord
	event string        // webhook event type; forces forwarding when set
	done  chan struct{} // closed by the writer for kindFlush
}
