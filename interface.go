// FILE: lixenwraith/monitor/interface.go
package monitor

// LogSink receives records pushed by a host logging subsystem.
// HandleRecord must return quickly and never fail the caller.
type LogSink interface {
	HandleRecord(rec LogRecord)
}

// HostLogSource is the host side registration point for sinks
type HostLogSource interface {
	Register(sink LogSink) error
	Unregister(sink LogSink) error
}

// LogFile is the file handle used by the session writer
type LogFile interface {
	Write(p []byte) (int, error)
	Sync() error
	Close() error
}

// OpenFunc opens a log file for appending, creating it when missing
type OpenFunc func(path string) (LogFile, error)
