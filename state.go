// FILE: lixenwraith/monitor/state.go
package monitor

import (
	"sync/atomic"
	"time"
)

// State encapsulates the runtime state and counters of the engine
type State struct {
	lifecycle   atomic.Int32 // StateStopped .. StateStopping
	WriterFault atomic.Bool  // Last write failed

	StartTime atomic.Value // stores time.Time of the last start

	// Counters persist across start/stop cycles of one Engine
	TotalRouted       atomic.Uint64 // Records accepted by HandleRecord
	TotalFiltered     atomic.Uint64 // Records below the level threshold
	TotalWritten      atomic.Uint64 // Records written to the session log
	TotalDropped      atomic.Uint64 // Records lost to a full or closed queue
	DroppedLogs       atomic.Uint64 // Drops not yet reported in the log
	TotalWriteErrors  atomic.Uint64
	TotalRotations    atomic.Uint64
	HeartbeatSequence atomic.Uint64
	WebhookSent       atomic.Uint64
	WebhookFailed     atomic.Uint64
	WebhookDropped    atomic.Uint64
}

func (s *State) get() int32 { return s.lifecycle.Load() }

func (s *State) set(v int32) { s.lifecycle.Store(v) }

func (s *State) transition(from, to int32) bool {
	return s.lifecycle.CompareAndSwap(from, to)
}

func (s *State) startTime() time.Time {
	if t, ok := s.StartTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// StateName converts a lifecycle value to its name
func StateName(state int32) string {
	switch state {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of engine counters
type Stats struct {
	Routed         uint64 `json:"routed"`
	Filtered       uint64 `json:"filtered"`
	Written        uint64 `json:"written"`
	Dropped        uint64 `json:"dropped"`
	Suppressed     uint64 `json:"suppressed"`
	Muted          uint64 `json:"muted"`
	RateLimited    uint64 `json:"rate_limited"`
	Summaries      uint64 `json:"summaries"`
	WriteErrors    uint64 `json:"write_errors"`
	Rotations      uint64 `json:"rotations"`
	Heartbeats     uint64 `json:"heartbeats"`
	WebhookSent    uint64 `json:"webhook_sent"`
	WebhookFailed  uint64 `json:"webhook_failed"`
	WebhookDropped uint64 `json:"webhook_dropped"`
	OpenBuckets    int    `json:"open_buckets"`
	QueueLength    int    `json:"queue_length"`
}

// Status is the read-only snapshot served to status views
type Status struct {
	State       string          `json:"state"`
	Health      string          `json:"health"`
	Session     *Session        `json:"session,omitempty"`
	Rotation    RotationState   `json:"rotation"`
	Heartbeat   HeartbeatStatus `json:"heartbeat"`
	Breadcrumbs []Breadcrumb    `json:"breadcrumbs"`
	Stats       Stats           `json:"stats"`
}
