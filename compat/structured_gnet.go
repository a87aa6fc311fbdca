// FILE: lixenwraith/monitor/compat/structured_gnet.go
package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lixenwraith/monitor"
)

// keyValuePattern detects "key=%v" or "key: %v" verbs in a format string
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)

// parseFormat renders the message and extracts key/value verbs as fields.
// Formats with fewer args than key verbs are not split.
func parseFormat(format string, args []any) (string, map[string]any) {
	msg := fmt.Sprintf(format, args...)

	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 || len(matches) > len(args) {
		return msg, nil
	}
	// Verbs before the first key verb consume args too
	lead := strings.Count(strings.ReplaceAll(format[:matches[0][0]], "%%", ""), "%")
	if lead+len(matches) > len(args) {
		return msg, nil
	}

	fields := make(map[string]any, len(matches))
	for i, match := range matches {
		fields[format[match[2]:match[3]]] = args[lead+i]
	}
	return msg, fields
}

// StructuredGnetAdapter is a gnet adapter that lifts key=value verbs into fields
type StructuredGnetAdapter struct {
	*GnetAdapter
}

// NewStructuredGnetAdapter creates a gnet adapter with field extraction
func NewStructuredGnetAdapter(hub *Hub, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{GnetAdapter: NewGnetAdapter(hub, opts...)}
}

func (a *StructuredGnetAdapter) emit(level int64, format string, args []any) {
	msg, fields := parseFormat(format, args)
	a.hub.Emit(monitor.LogRecord{Level: level, Category: a.category, Message: msg, Fields: fields})
}

func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	a.emit(monitor.LevelDebug, format, args)
}

func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	a.emit(monitor.LevelInfo, format, args)
}

func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	a.emit(monitor.LevelWarn, format, args)
}

func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	a.emit(monitor.LevelError, format, args)
}
