// FILE: lixenwraith/monitor/heartbeat.go
package monitor

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"
)

// keepAliveRecord builds the periodic [HB] record with process and disk figures
func (e *Engine) keepAliveRecord(r *run, now time.Time) LogRecord {
	sequence := e.state.HeartbeatSequence.Add(1)

	var uptime time.Duration
	if start := e.state.startTime(); !start.IsZero() {
		uptime = now.Sub(start)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	allocMB := float64(mem.Alloc) / (1024 * 1024)
	goroutines := runtime.NumGoroutine()

	fields := map[string]any{
		"sequence":   sequence,
		"uptime":     uptime.Round(time.Second).String(),
		"alloc_mb":   fmt.Sprintf("%.2f", allocMB),
		"sys_mb":     fmt.Sprintf("%.2f", float64(mem.Sys)/(1024*1024)),
		"num_gc":     mem.NumGC,
		"goroutines": goroutines,
		"written":    e.state.TotalWritten.Load(),
		"dropped":    e.state.TotalDropped.Load(),
	}

	diskFree := "n/a"
	dir := filepath.Dir(r.writer.Session().LogPath)
	if free, err := getDiskFreeSpace(dir); err == nil {
		freeMB := float64(free) / (1024 * 1024)
		fields["disk_free_mb"] = fmt.Sprintf("%.2f", freeMB)
		diskFree = fmt.Sprintf("%.0fMB", freeMB)
	}
	if size, err := getLogDirSize(dir); err == nil {
		fields["dir_size_mb"] = fmt.Sprintf("%.2f", float64(size)/(1024*1024))
	}

	return LogRecord{
		Time:     now,
		Level:    LevelInfo,
		Category: CategoryHeartbeat,
		Message:  fmt.Sprintf("[HB] mem=%.1fMB goroutines=%d disk_free=%s", allocMB, goroutines, diskFree),
		Fields:   fields,
	}
}
